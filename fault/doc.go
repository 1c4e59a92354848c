// Package fault defines the typed error model shared by the proxy core.
//
// Every failure is classified once, at the failure site, into a Kind
// with a remediation hint and a retryability flag. Classification of
// upstream rejection text is a best-effort substring heuristic;
// unmatched messages fall back to KindUpstream.
package fault

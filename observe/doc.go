// Package observe provides the structured logging sink consumed by the
// proxy core.
//
// The core logs through the Logger interface and never depends on sink
// configuration; embedders may supply their own implementation or use
// the zerolog-backed one provided here.
package observe

// Package health probes upstream connectivity for the embedding
// front end's health endpoint.
package health

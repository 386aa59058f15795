// Package preflight validates the environment before the pipeline
// starts: the vault must be readable, the data directory writable with
// room to grow, and the embedder able to produce vectors.
package preflight

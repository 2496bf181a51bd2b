// Package audit writes an append-only JSON-lines record of every command the
// gateway dispatches, with the caller, the outcome and the dispatch latency.
package audit

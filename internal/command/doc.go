// Package command implements the command gateway.
//
// A raw command string such as `openEDF("trial1")` is parsed into a verb and
// an optional argument, decoded into one of a closed set of command variants,
// and dispatched as a short sequence of tracker calls. Every dispatch is
// audited and published on the event stream.
package command

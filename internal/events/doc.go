// Package events implements the gateway's Server-Sent Events stream.
//
// Every dispatched command, calibration transition and session change is
// published as an event with a monotonic ID. Recent events are kept in a
// ring buffer so a reconnecting client can resume with Last-Event-ID.
package events

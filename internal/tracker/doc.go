// Package tracker defines the Tracker interface for the eye-tracker host link.
//
// The gateway never talks to the vendor SDK directly. Drivers register a
// factory under a name and the hosting process opens exactly one Tracker.
//
// Vendor failures are normalized to INVALID_STATE, BUSY, UNAVAILABLE or
// INTERNAL by table-driven token matching, keeping the original error.
package tracker

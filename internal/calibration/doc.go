// Package calibration runs tracker calibration in an isolated child process.
//
// The gateway process never opens a window. On doTrackerSetup the Supervisor
// starts the same binary as `elg calibrate`, waits for it with a bounded
// timeout, and reads exactly one outcome line from its stdout. A child that
// exits, crashes or hangs without reporting is a failed calibration.
//
// The child side (RunChild) connects to the host, opens a window through a
// graphics Toolkit, runs the tracker setup on it and reports the outcome.
package calibration

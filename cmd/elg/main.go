// Package main is the EyeLink command gateway entry point.
//
// "elg serve" (the default) runs the HTTP gateway. "elg calibrate" is the
// calibration child the gateway starts for doTrackerSetup; it reports its
// outcome as one JSON line on stdout.
package main

import (
	"os"
)

// Version is the gateway release.
const Version = "1.0.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

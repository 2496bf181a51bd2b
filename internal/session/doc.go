// Package session owns the single tracker link of the gateway process.
//
// A Session is created once by the hosting process and passed by reference to
// the command gateway. It tracks link state and the currently open data file.
package session

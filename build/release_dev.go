//go:build dev && !testing
// +build dev,!testing

package build

// Release is a string that helps the program determine the running mode.
const Release = "dev"

// DEBUG is set when the program is compiled for debugging.
const DEBUG = true

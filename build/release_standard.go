//go:build !testing && !dev
// +build !testing,!dev

package build

// Release is a string that helps the program determine the running mode.
const Release = "standard"

// DEBUG is set when the program is compiled for debugging.
const DEBUG = false

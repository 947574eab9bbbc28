//go:build testing
// +build testing

package build

// Release is a string that helps the program determine the running mode.
// The testing tag selects the testing constants.
const Release = "testing"

// DEBUG is set when the program is compiled for debugging, causing extra
// sanity checks to panic instead of merely logging.
const DEBUG = true

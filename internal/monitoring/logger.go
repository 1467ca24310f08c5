package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

var debug bool

// SetDebug enables or disables Debugf output. Off by default; the binaries
// turn it on behind their -verbose flag.
func SetDebug(on bool) {
	debug = on
}

// Debugf logs through Logf when debug output is enabled. Used for per-frame
// chatter that would swamp the log at normal levels.
func Debugf(format string, v ...interface{}) {
	if debug {
		Logf(format, v...)
	}
}

package ospfs

import "github.com/sirupsen/logrus"

// log is the package-wide structured logger. Components log through it
// instead of the standard library's log package; tests and callers needing
// quiet output can lower its level with SetLogLevel.
var log = logrus.WithField("component", "ospfs")

// SetLogLevel adjusts verbosity of the package logger. Defaults to
// logrus.WarnLevel so that per-block journal/bitmap chatter is silent unless
// a caller opts in.
func SetLogLevel(level logrus.Level) {
	logrus.StandardLogger().SetLevel(level)
}

func init() {
	logrus.SetLevel(logrus.WarnLevel)
}

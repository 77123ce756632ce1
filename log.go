package forkchain

import (
	"github.com/btcsuite/btclog"
)

// log is the package logger. It is disabled until the caller installs
// one with UseLogger, the same convention the btcsuite packages follow.
var log btclog.Logger

func init() {
	DisableLog()
}

// DisableLog disables all library log output.
func DisableLog() {
	log = btclog.Disabled
}

// UseLogger uses a specified Logger to output package logging info.
func UseLogger(logger btclog.Logger) {
	log = logger
}

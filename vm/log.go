package vm

import (
	"github.com/tliron/commonlog"
)

// Loggers are looked up on use so that a backend configured after
// package initialisation still takes effect.
func vmLog() commonlog.Logger {
	return commonlog.GetLogger("backtalker.vm")
}

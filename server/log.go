package server

import "github.com/tliron/commonlog"

func serverLog() commonlog.Logger {
	return commonlog.GetLogger("backtalker.server")
}

package app

import (
	"github.com/goliatone/go-blog"
	"github.com/goliatone/go-router"
	"github.com/rs/zerolog"
)

// routerLogger feeds go-router's key/value log calls into zerolog.
// Route registration is logged at info by the router, it lands at debug
// here.
type routerLogger struct {
	log zerolog.Logger
}

var _ router.Logger = routerLogger{}

func newRouterLogger(logger *blog.ZerologLogger) routerLogger {
	return routerLogger{log: logger.Zerolog()}
}

func (l routerLogger) Debug(msg string, args ...any) {
	l.log.Debug().Fields(args).Msg(msg)
}

func (l routerLogger) Info(msg string, args ...any) {
	l.log.Debug().Fields(args).Msg(msg)
}

func (l routerLogger) Warn(msg string, args ...any) {
	l.log.Warn().Fields(args).Msg(msg)
}

func (l routerLogger) Error(msg string, args ...any) {
	l.log.Error().Fields(args).Msg(msg)
}

package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	pctx "github.com/baechuer/real-time-ressys/services/account-service/internal/pkg/context"
)

const serviceName = "account-service"

var Logger = zerolog.Nop()

func Init() {
	InitWithWriter(os.Stdout)
}

// InitWithWriter configures Logger from LOG_LEVEL (default info) and
// LOG_FORMAT ("json" or "console", default console) and installs it as the
// global zerolog logger.
func InitWithWriter(w io.Writer) {
	level, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	out := w
	if os.Getenv("LOG_FORMAT") != "json" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	Logger = zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("service", serviceName).
		Logger()

	zlog.Logger = Logger
}

// WithCtx returns Logger annotated with the request id carried by ctx.
func WithCtx(ctx context.Context) *zerolog.Logger {
	l := Logger
	if id := pctx.GetRequestID(ctx); id != "" {
		l = l.With().Str("request_id", id).Logger()
	}
	return &l
}

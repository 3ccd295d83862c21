package composables

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/campus-hr/hrdesk/pkg/constants"
)

var discardLogger = func() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}()

// UseLogger returns the request-scoped logger put into the context by the logging middleware.
// Panics when the middleware did not run.
func UseLogger(ctx context.Context) *logrus.Entry {
	logger, ok := TryUseLogger(ctx)
	if !ok {
		panic("logger not found")
	}
	return logger
}

// TryUseLogger is UseLogger without the panic. The returned entry is never nil: a discarding
// logger is handed out when none is present.
func TryUseLogger(ctx context.Context) (*logrus.Entry, bool) {
	logger, ok := ctx.Value(constants.LoggerKey).(*logrus.Entry)
	if !ok || logger == nil {
		return discardLogger, false
	}
	return logger, true
}

func WithLogger(ctx context.Context, logger *logrus.Entry) context.Context {
	return context.WithValue(ctx, constants.LoggerKey, logger)
}

func UseRequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(constants.RequestIDKey).(string)
	return id, ok && id != ""
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, constants.RequestIDKey, id)
}

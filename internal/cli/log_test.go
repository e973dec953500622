package cli

import (
	"context"
	"io"
	"testing"

	"github.com/charmbracelet/log"
)

func TestLoggerContextRoundTrip(t *testing.T) {
	l := newLogger(io.Discard, log.DebugLevel)
	ctx := withLogger(context.Background(), l)

	if got := loggerFromContext(ctx); got != l {
		t.Error("logger not recovered from context")
	}
}

func TestLoggerFromContext_Default(t *testing.T) {
	if loggerFromContext(context.Background()) == nil {
		t.Error("must fall back to a usable logger")
	}
}

package util

import (
	"context"
	"io"
	"log/slog"
	"testing"
)

func TestLoggerFromContext(t *testing.T) {
	scoped := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := ContextWithLogger(context.Background(), scoped)
	if got := LoggerFromContext(ctx); got != scoped {
		t.Fatal("scoped logger not returned")
	}
	if got := LoggerFromContext(context.Background()); got != slog.Default() {
		t.Fatal("bare context should fall back to the default logger")
	}
}

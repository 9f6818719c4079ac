package observability

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNopTracer(t *testing.T) {
	tracer := NopTracer()
	ctx := context.Background()
	ctx2, span := tracer.StartSpan(ctx, SpanLocate)
	assert.Equal(t, ctx, ctx2)
	span.SetTag("key", "value")
	span.SetError(nil)
	span.Finish()
}

func TestSlogLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewSlogLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	l.With(String("block", "p0-b1")).Warn("annotation skipped",
		Int("page", 2), Float64("similarity", 0.5), Bool("vertical", true), Error("err", errors.New("degenerate")))

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "block=p0-b1")
	assert.Contains(t, out, "page=2")
	assert.Contains(t, out, "similarity=0.5")
	assert.Contains(t, out, "vertical=true")
	assert.Contains(t, out, "err=degenerate")
}

func TestNopLogger(t *testing.T) {
	var l Logger = NopLogger{}
	l.With(String("a", "b")).Info("ignored")
}

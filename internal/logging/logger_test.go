package logging

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNewWithWriterLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "trivia-quiz", "production", "warn")

	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "app=trivia-quiz")
	assert.Contains(t, out, "env=production")
}

func TestNewWithWriterUnknownLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "trivia-quiz", "production", "chatty")

	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
}

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "trivia-quiz", "production", "debug")

	ctx := IntoContext(context.Background(), logger)
	l := FromContext(ctx)
	l.Debug().Msg("from context")
	assert.Contains(t, buf.String(), "from context")

	nop := FromContext(context.Background())
	assert.Equal(t, zerolog.Disabled, nop.GetLevel())
}

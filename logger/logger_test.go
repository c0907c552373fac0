package logger

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level, env string
		want       zerolog.Level
	}{
		{"", "development", zerolog.DebugLevel},
		{"", "production", zerolog.InfoLevel},
		{"", "", zerolog.InfoLevel},
		{"warn", "development", zerolog.WarnLevel},
		{"ERROR", "", zerolog.ErrorLevel},
		{"nonsense", "", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.level, tt.env), "level=%q env=%q", tt.level, tt.env)
	}
}

func TestNew_WritesComponent(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, zerolog.InfoLevel)
	log.Info().Str("component", "collector").Msg("hello")
	log.Debug().Msg("hidden")

	out := buf.String()
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, "collector")
	assert.NotContains(t, out, "hidden")
}

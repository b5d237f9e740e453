package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"", zerolog.InfoLevel},
		{"nonsense", zerolog.InfoLevel},
	}

	for _, tc := range tests {
		if got := ParseLevel(tc.in); got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestFor_TagsComponent(t *testing.T) {
	var buf bytes.Buffer
	SetupWriter("info", &buf)
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	logger := For("updater")
	logger.Info().Msg("hello")
	logger.Debug().Msg("hidden")

	out := buf.String()
	if !strings.Contains(out, `"component":"updater"`) {
		t.Errorf("missing component field: %s", out)
	}
	if strings.Contains(out, "hidden") {
		t.Errorf("debug message should be filtered at info level: %s", out)
	}
}

package logger

import (
	"bytes"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvLogger_Debug(t *testing.T) {
	tests := []struct {
		name      string
		envValue  string
		force     bool
		expectLog bool
	}{
		{name: "logs when VIEWCYCLE_DEBUG is set", envValue: "1", expectLog: true},
		{name: "logs when forced", force: true, expectLog: true},
		{name: "silent by default", expectLog: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log.SetOutput(&buf)
			defer log.SetOutput(os.Stderr)

			if tt.envValue != "" {
				t.Setenv(DebugEnv, tt.envValue)
			} else {
				os.Unsetenv(DebugEnv)
			}
			SetDebug(tt.force)
			defer SetDebug(false)

			l := NewEnvLogger("[test]")
			l.Debug("test message %s", "arg")

			if tt.expectLog {
				assert.Contains(t, buf.String(), "[test] test message arg")
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestEnvLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	l := NewEnvLogger("[host]")
	l.Info("info %d", 1)
	l.Warn("warn %d", 2)
	l.Error("error %d", 3)

	out := buf.String()
	assert.Contains(t, out, "[host] info 1")
	assert.Contains(t, out, "[host] WARN: warn 2")
	assert.Contains(t, out, "[host] ERROR: error 3")
}

func TestBufferLogger(t *testing.T) {
	l := NewBufferLogger()
	l.Debug("d")
	l.Warn("w %s", "x")
	l.Warn("w2")

	require.Len(t, l.Messages, 3)
	assert.Equal(t, "w x", l.Messages[1].Message)
	assert.True(t, l.HasLevel("warn"))
	assert.Equal(t, 2, l.Count("warn"))
	assert.False(t, l.HasLevel("error"))

	l.Clear()
	assert.Empty(t, l.Messages)
}

func TestDefault(t *testing.T) {
	orig := Default()
	defer SetDefault(orig)

	buf := NewBufferLogger()
	SetDefault(buf)
	Default().Info("hello")
	assert.Equal(t, 1, buf.Count("info"))

	SetDefault(nil)
	assert.NotNil(t, Default())
}

func TestNoop(t *testing.T) {
	l := Noop()
	l.Debug("x")
	l.Info("x")
	l.Warn("x")
	l.Error("x")
}

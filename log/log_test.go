package log

import (
	"testing"

	"github.com/cfxwasm/sdk/domain/entities"
	"github.com/cfxwasm/sdk/invoker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type logHost struct {
	lines []string
}

func (h *logHost) Invoke(uint64, []entities.Arg, entities.ReturnType, []byte) int32 { return 0 }
func (h *logHost) CanonicalizeRef(uint32, []byte) int32                             { return 0 }
func (h *logHost) InvokeRefFunc(string, []byte, []byte) int32                       { return -2 }
func (h *logHost) Log(msg string)                                                   { h.lines = append(h.lines, msg) }

func TestCore_WritesOneLinePerEntry(t *testing.T) {
	var lines []string
	l := zap.New(NewCore(WithSink(func(s string) { lines = append(lines, s) })))

	l.Info("spawned", zap.Int("slot", 3))

	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "INFO")
	assert.Contains(t, lines[0], "spawned")
	assert.Contains(t, lines[0], `"slot": 3`)
	assert.NotContains(t, lines[0], "\n")
}

func TestCore_LevelFiltering(t *testing.T) {
	tests := []struct {
		name  string
		level zapcore.Level
		write func(*zap.Logger)
		want  int
	}{
		{name: "debug filtered at info", level: zapcore.InfoLevel, write: func(l *zap.Logger) { l.Debug("x") }, want: 0},
		{name: "warn passes at info", level: zapcore.InfoLevel, write: func(l *zap.Logger) { l.Warn("x") }, want: 1},
		{name: "debug passes at debug", level: zapcore.DebugLevel, write: func(l *zap.Logger) { l.Debug("x") }, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var n int
			l := zap.New(NewCore(WithLevel(tt.level), WithSink(func(string) { n++ })))
			tt.write(l)
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestCore_WithFields(t *testing.T) {
	var lines []string
	core := NewCore(
		WithFields(zap.String("resource", "adder")),
		WithSink(func(s string) { lines = append(lines, s) }),
	)
	l := zap.New(core).With(zap.String("task", "main"))

	l.Info("hello")
	zap.New(core).Info("plain")

	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"resource": "adder"`)
	assert.Contains(t, lines[0], `"task": "main"`)
	assert.Contains(t, lines[1], `"resource": "adder"`)
	assert.NotContains(t, lines[1], "task")
}

func TestDefaultSinkAndPrint(t *testing.T) {
	h := &logHost{}
	invoker.SetHost(h)
	t.Cleanup(func() { invoker.SetHost(nil) })

	Print("raw line")
	Printf("tick %d", 7)
	L().Info("through zap")

	require.Len(t, h.lines, 3)
	assert.Equal(t, "raw line", h.lines[0])
	assert.Equal(t, "tick 7", h.lines[1])
	assert.Contains(t, h.lines[2], "through zap")
}

func TestSetLogger(t *testing.T) {
	prev := L()
	t.Cleanup(func() { SetLogger(prev) })

	SetLogger(nil)
	assert.NotPanics(t, func() { L().Info("dropped") })
}

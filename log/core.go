// Package log provides structured logging (zap) adapted for the guest's WASM
// environment. Entries are encoded on the guest side and handed to the host
// through its log import, one line per entry.
package log

import (
	"strings"

	"github.com/cfxwasm/sdk/invoker"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Core is a zapcore.Core that writes encoded entries to the host.
type Core struct {
	zapcore.LevelEnabler
	enc  zapcore.Encoder
	sink func(string)
}

// CoreOption configures a Core.
type CoreOption func(*coreConfig)

type coreConfig struct {
	level  zapcore.LevelEnabler
	fields []zap.Field
	sink   func(string)
}

func defaultCoreConfig() coreConfig {
	return coreConfig{
		level: zapcore.InfoLevel,
		sink:  func(line string) { invoker.CurrentHost().Log(line) },
	}
}

// WithLevel sets the minimum level to report.
// Entries below this level are filtered on the guest side.
func WithLevel(level zapcore.LevelEnabler) CoreOption {
	return func(c *coreConfig) {
		c.level = level
	}
}

// WithFields adds fields to every entry.
func WithFields(fields ...zap.Field) CoreOption {
	return func(c *coreConfig) {
		c.fields = append(c.fields, fields...)
	}
}

// WithSink replaces the host log import as the destination of encoded lines.
func WithSink(sink func(string)) CoreOption {
	return func(c *coreConfig) {
		c.sink = sink
	}
}

// NewCore creates a Core with the given options. The host stamps times, so
// entries carry none.
func NewCore(opts ...CoreOption) *Core {
	cfg := defaultCoreConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.TimeKey = ""
	encCfg.CallerKey = ""
	encCfg.StacktraceKey = ""

	c := &Core{
		LevelEnabler: cfg.level,
		enc:          zapcore.NewConsoleEncoder(encCfg),
		sink:         cfg.sink,
	}
	for _, f := range cfg.fields {
		f.AddTo(c.enc)
	}
	return c
}

// With implements zapcore.Core.
func (c *Core) With(fields []zapcore.Field) zapcore.Core {
	clone := &Core{
		LevelEnabler: c.LevelEnabler,
		enc:          c.enc.Clone(),
		sink:         c.sink,
	}
	for _, f := range fields {
		f.AddTo(clone.enc)
	}
	return clone
}

// Check implements zapcore.Core.
func (c *Core) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

// Write implements zapcore.Core.
func (c *Core) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	buf, err := c.enc.EncodeEntry(ent, fields)
	if err != nil {
		return err
	}
	c.sink(strings.TrimSuffix(buf.String(), "\n"))
	buf.Free()
	return nil
}

// Sync implements zapcore.Core. Lines are delivered synchronously.
func (c *Core) Sync() error {
	return nil
}

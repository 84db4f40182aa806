// Package log writes JSON log lines tagged with the identity of a run.
//
// Every line carries run_id and attempt, plus job_id and parent_run_id
// when the run has them. Call-site detail goes under "fields".
package log

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/justapithecus/knotfold/types"
)

// Logger is a zap logger bound to one run. A nil *Logger discards.
type Logger struct {
	z *zap.Logger
}

// NewLogger logs everything to stderr.
func NewLogger(meta *types.RunMeta) *Logger {
	return NewLoggerAt(meta, os.Stderr, "debug")
}

// NewLoggerAt logs to w at level or above. Levels are zap's names;
// anything unparsable means info.
func NewLoggerAt(meta *types.RunMeta, w io.Writer, level string) *Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	enc := zapcore.NewJSONEncoder(zapcore.EncoderConfig{
		TimeKey:     "timestamp",
		LevelKey:    "level",
		MessageKey:  "message",
		EncodeTime:  zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel: zapcore.LowercaseLevelEncoder,
	})
	core := zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(w)), lvl)
	return &Logger{z: zap.New(core, zap.Fields(runFields(meta)...))}
}

func runFields(meta *types.RunMeta) []zap.Field {
	fields := []zap.Field{zap.String("run_id", meta.RunID), zap.Int("attempt", meta.Attempt)}
	if meta.JobID != nil {
		fields = append(fields, zap.String("job_id", *meta.JobID))
	}
	if meta.ParentRunID != nil {
		fields = append(fields, zap.String("parent_run_id", *meta.ParentRunID))
	}
	return fields
}

func NewNop() *Logger {
	return &Logger{z: zap.NewNop()}
}

// With adds top-level fields to every later line.
func (l *Logger) With(fields map[string]any) *Logger {
	if l == nil {
		return nil
	}
	zf := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		zf = append(zf, zap.Any(k, v))
	}
	return &Logger{z: l.z.With(zf...)}
}

func (l *Logger) write(level zapcore.Level, msg string, fields map[string]any) {
	if l == nil {
		return
	}
	if ce := l.z.Check(level, msg); ce != nil {
		ce.Write(zap.Any("fields", fields))
	}
}

func (l *Logger) Debug(msg string, fields map[string]any) { l.write(zapcore.DebugLevel, msg, fields) }
func (l *Logger) Info(msg string, fields map[string]any)  { l.write(zapcore.InfoLevel, msg, fields) }
func (l *Logger) Warn(msg string, fields map[string]any)  { l.write(zapcore.WarnLevel, msg, fields) }
func (l *Logger) Error(msg string, fields map[string]any) { l.write(zapcore.ErrorLevel, msg, fields) }

func (l *Logger) Sync() error {
	if l == nil {
		return nil
	}
	return l.z.Sync()
}

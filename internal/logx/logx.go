// Package logx wraps a *zap.SugaredLogger with the [DEBUG]/[WARN]/[ERROR]
// tag convention the rest of this module's call sites expect. A nil
// *Logger logs nothing, so packages can embed one as an optional field
// without every caller needing a guard.
package logx

import "go.uber.org/zap"

type Logger struct {
	sugar *zap.SugaredLogger
}

// New wraps z. Passing a nil z is valid and yields a no-op Logger.
func New(z *zap.Logger) *Logger {
	if z == nil {
		return nil
	}
	return &Logger{sugar: z.Sugar()}
}

// Nop returns a Logger that discards everything.
func Nop() *Logger {
	return New(zap.NewNop())
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	if l == nil {
		return
	}
	l.sugar.Debugf("[DEBUG] "+format, args...)
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	if l == nil {
		return
	}
	l.sugar.Warnf("[WARN] "+format, args...)
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	if l == nil {
		return
	}
	l.sugar.Errorf("[ERROR] "+format, args...)
}

func (l *Logger) Infof(format string, args ...interface{}) {
	if l == nil {
		return
	}
	l.sugar.Infof(format, args...)
}

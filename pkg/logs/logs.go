package logs

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

func GetLevel(level string) Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return LevelDebug
	case "INFO":
		return LevelInfo
	case "WARN":
		return LevelWarn
	case "ERROR":
		return LevelError
	case "FATAL":
		return LevelFatal
	default:
		return LevelInfo
	}
}

var levelStrs = []string{
	"[DEBUG] ",
	"[INFO] ",
	"[WARN] ",
	"[ERROR] ",
	"[FATAL] ",
}

func (lv Level) toString() string {
	if lv >= LevelDebug && lv <= LevelFatal {
		return levelStrs[lv]
	}
	return fmt.Sprintf("[?%d] ", lv)
}

type FormatLogger interface {
	Debugf(format string, v ...interface{})
	Infof(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
	Fatalf(format string, v ...interface{})
}

type CtxLogger interface {
	CtxDebugf(ctx context.Context, format string, v ...interface{})
	CtxInfof(ctx context.Context, format string, v ...interface{})
	CtxWarnf(ctx context.Context, format string, v ...interface{})
	CtxErrorf(ctx context.Context, format string, v ...interface{})
}

type Control interface {
	SetLevel(Level)
	SetOutput(io.Writer)
}

type FullLogger interface {
	FormatLogger
	CtxLogger
	Control
}

type ILog struct {
	stdLog *log.Logger
	level  Level
}

func (il *ILog) SetOutput(w io.Writer) {
	il.stdLog.SetOutput(w)
}

func (il *ILog) SetLevel(lv Level) {
	il.level = lv
}

func (il *ILog) logf(lv Level, format string, v ...interface{}) {
	if il.level > lv {
		return
	}
	msg := lv.toString() + fmt.Sprintf(format, v...)
	il.stdLog.Output(4, msg)
	if lv == LevelFatal {
		os.Exit(1)
	}
}

func (il *ILog) logfCtx(ctx context.Context, lv Level, format string, v ...interface{}) {
	if il.level > lv {
		return
	}
	msg := lv.toString()
	if logID := ctx.Value(logIDKey{}); logID != nil {
		msg += fmt.Sprintf("[log-id: %v] ", logID)
	}
	msg += fmt.Sprintf(format, v...)
	il.stdLog.Output(4, msg)
	if lv == LevelFatal {
		os.Exit(1)
	}
}

func (il *ILog) Debugf(format string, v ...interface{}) { il.logf(LevelDebug, format, v...) }
func (il *ILog) Infof(format string, v ...interface{})  { il.logf(LevelInfo, format, v...) }
func (il *ILog) Warnf(format string, v ...interface{})  { il.logf(LevelWarn, format, v...) }
func (il *ILog) Errorf(format string, v ...interface{}) { il.logf(LevelError, format, v...) }
func (il *ILog) Fatalf(format string, v ...interface{}) { il.logf(LevelFatal, format, v...) }

func (il *ILog) CtxDebugf(ctx context.Context, format string, v ...interface{}) {
	il.logfCtx(ctx, LevelDebug, format, v...)
}

func (il *ILog) CtxInfof(ctx context.Context, format string, v ...interface{}) {
	il.logfCtx(ctx, LevelInfo, format, v...)
}

func (il *ILog) CtxWarnf(ctx context.Context, format string, v ...interface{}) {
	il.logfCtx(ctx, LevelWarn, format, v...)
}

func (il *ILog) CtxErrorf(ctx context.Context, format string, v ...interface{}) {
	il.logfCtx(ctx, LevelError, format, v...)
}

type logIDKey struct{}

// WithLogID attaches a log id that the Ctx* variants prepend to every line.
func WithLogID(ctx context.Context, logID string) context.Context {
	return context.WithValue(ctx, logIDKey{}, logID)
}

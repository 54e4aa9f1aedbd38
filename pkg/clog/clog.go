// Package clog provides depot's logging. It wraps apex/log with a line
// oriented handler and supports separate logging contexts so each storage
// back-end can log to its own destination (for example a per-adapter log
// file) while everything else flows through the global logger.
package clog

import (
	"fmt"
	"io"
	"sync"

	"github.com/apex/log"
)

const globalCtx = "global"

type ContextLogger struct {
	global   *log.Logger
	contexts sync.Map
}

func NewContextLogger(w io.WriteCloser) *ContextLogger {
	return &ContextLogger{
		global: &log.Logger{
			Handler: NewHandler(w),
			Level:   log.InfoLevel,
		},
	}
}

// AddContext routes entries logged with UsingCtx(name) to w.
func (l *ContextLogger) AddContext(name string, w io.WriteCloser) {
	l.contexts.Store(name, &log.Logger{
		Handler: NewHandler(w),
		Level:   log.InfoLevel,
	})
}

func (l *ContextLogger) RemoveContext(name string) {
	logger, ok := l.contexts.LoadAndDelete(name)
	if !ok {
		return
	}

	if h := handlerOf(logger); h != nil {
		h.Close()
	}
}

func (l *ContextLogger) SetLevel(name string, level log.Level) {
	if name == globalCtx {
		l.global.Level = level
		return
	}

	if logger := l.contextLogger(name); logger != nil {
		logger.Level = level
	}
}

func (l *ContextLogger) SetLevelFromString(name, s string) error {
	level, err := log.ParseLevel(s)
	if err != nil {
		return err
	}

	l.SetLevel(name, level)

	return nil
}

func (l *ContextLogger) SetOutput(name string, w io.WriteCloser) error {
	logger := l.global
	if name != globalCtx {
		logger = l.contextLogger(name)
	}

	h := handlerOf(logger)
	if h == nil {
		return fmt.Errorf("no such logging context %s", name)
	}

	h.SetOutput(w)

	return nil
}

// UsingCtx returns an entry tagged with the context name, routed to the
// context's logger when one is registered and to the global logger
// otherwise.
func (l *ContextLogger) UsingCtx(name string) *log.Entry {
	logger := l.contextLogger(name)
	if logger == nil {
		logger = l.global
	}

	return logger.WithField("ctx", name)
}

func (l *ContextLogger) Global() *log.Entry {
	return l.UsingCtx(globalCtx)
}

func (l *ContextLogger) contextLogger(name string) *log.Logger {
	v, ok := l.contexts.Load(name)
	if !ok {
		return nil
	}

	logger, ok := v.(*log.Logger)
	if !ok {
		return nil
	}

	return logger
}

func handlerOf(v interface{}) *Handler {
	logger, ok := v.(*log.Logger)
	if !ok || logger == nil {
		return nil
	}

	h, ok := logger.Handler.(*Handler)
	if !ok {
		return nil
	}

	return h
}

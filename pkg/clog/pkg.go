package clog

import (
	"io"
	"os"

	"github.com/apex/log"
)

var clogger = NewContextLogger(os.Stdout)

func AddContext(name string, w io.WriteCloser) {
	clogger.AddContext(name, w)
}

func RemoveContext(name string) {
	clogger.RemoveContext(name)
}

func SetLevel(name string, level log.Level) {
	clogger.SetLevel(name, level)
}

func SetGlobalLevel(level log.Level) {
	clogger.SetLevel(globalCtx, level)
}

func SetGlobalLevelFromString(s string) error {
	return clogger.SetLevelFromString(globalCtx, s)
}

func SetOutput(name string, w io.WriteCloser) error {
	return clogger.SetOutput(name, w)
}

// UsingStorage returns a log entry scoped to the named storage.
func UsingStorage(name string) *log.Entry {
	return clogger.UsingCtx(name)
}

func Global() *log.Entry {
	return clogger.Global()
}

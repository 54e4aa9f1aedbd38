package clog

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/apex/log"
)

// Handler is an apex/log handler that writes single line entries of the
// form "LEVEL time message key=value ...". Fields are sorted by name so
// log output is stable.
type Handler struct {
	mu     sync.Mutex
	Writer io.WriteCloser
}

var levelNames = [...]string{
	log.DebugLevel: "DEBUG",
	log.InfoLevel:  "INFO",
	log.WarnLevel:  "WARN",
	log.ErrorLevel: "ERROR",
	log.FatalLevel: "FATAL",
}

func NewHandler(w io.WriteCloser) *Handler {
	return &Handler{Writer: w}
}

func (h *Handler) SetOutput(w io.WriteCloser) {
	h.mu.Lock()
	defer h.mu.Unlock()

	_ = h.Writer.Close()
	h.Writer = w
}

// Close closes the underlying writer unless it is stdout/stderr.
func (h *Handler) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.Writer == nil || h.Writer == os.Stdout || h.Writer == os.Stderr {
		return
	}

	_ = h.Writer.Close()
}

func (h *Handler) HandleLog(e *log.Entry) error {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var b bytes.Buffer
	_, _ = fmt.Fprintf(&b, "%5s %s %-25s", levelNames[e.Level], time.Now().Format(time.DateTime), e.Message)
	for _, name := range names {
		_, _ = fmt.Fprintf(&b, " %s=%v", name, e.Fields[name])
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, _ = fmt.Fprintln(h.Writer, b.String())

	return nil
}

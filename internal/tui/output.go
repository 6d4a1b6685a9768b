package tui

import (
	"bytes"
	"io"
	"sync"
)

// LineWriter splits written bytes into lines and hands each complete line to
// emit. Flush emits a trailing partial line.
type LineWriter struct {
	mu   sync.Mutex
	buf  bytes.Buffer
	emit func(string)
}

func NewLineWriter(emit func(string)) *LineWriter {
	return &LineWriter{emit: emit}
}

func (w *LineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf.Write(p)
	for {
		idx := bytes.IndexByte(w.buf.Bytes(), '\n')
		if idx < 0 {
			break
		}
		line := string(bytes.TrimRight(w.buf.Next(idx+1), "\r\n"))
		w.emit(line)
	}
	return len(p), nil
}

// Flush emits any buffered partial line.
func (w *LineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.buf.Len() > 0 {
		w.emit(w.buf.String())
		w.buf.Reset()
	}
}

// IndentWriter returns a writer that prefixes every line written to out.
func IndentWriter(out io.Writer, prefix string) *LineWriter {
	return NewLineWriter(func(line string) {
		_, _ = io.WriteString(out, prefix+line+"\n")
	})
}

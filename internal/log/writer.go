package log

import (
	"bytes"

	"github.com/charmbracelet/log"
)

// Writer forwards what a formatter writes to its standard error to a logger, one debug entry per line.
// Lines split across writes are joined back together. It is not safe for concurrent use.
type Writer struct {
	Log *log.Logger

	partial []byte
}

func (w *Writer) Write(p []byte) (n int, err error) {
	w.partial = append(w.partial, p...)

	for {
		idx := bytes.IndexByte(w.partial, '\n')
		if idx < 0 {
			break
		}

		w.emit(w.partial[:idx])
		w.partial = w.partial[idx+1:]
	}

	return len(p), nil
}

// Flush logs a trailing line which was not terminated by a newline.
func (w *Writer) Flush() {
	if len(w.partial) > 0 {
		w.emit(w.partial)
		w.partial = nil
	}
}

func (w *Writer) emit(line []byte) {
	line = bytes.TrimRight(line, "\r")
	if len(bytes.TrimSpace(line)) == 0 {
		return
	}

	w.Log.Debug(string(line))
}

package log_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	internallog "github.com/routefmt/routefmt/internal/log"
	"github.com/stretchr/testify/require"
)

func TestWriter(t *testing.T) {
	as := require.New(t)

	var buf bytes.Buffer

	logger := log.New(&buf)
	logger.SetLevel(log.DebugLevel)

	w := &internallog.Writer{Log: logger}

	for _, chunk := range []string{"first li", "ne\r\n\n   \nsecond line\nthi", "rd"} {
		n, err := w.Write([]byte(chunk))
		as.NoError(err)
		as.Equal(len(chunk), n)
	}

	// the trailing line is held back until flushed
	as.Equal(2, strings.Count(buf.String(), "\n"))
	as.Contains(buf.String(), "first line")
	as.Contains(buf.String(), "second line")
	as.NotContains(buf.String(), "third")

	w.Flush()

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	as.Len(lines, 3)
	as.Contains(lines[2], "third")

	// nothing left to flush
	w.Flush()
	as.Equal(3, strings.Count(buf.String(), "\n"))
}

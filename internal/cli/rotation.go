package cli

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/mvidal/wfmon/internal/output"
)

// capture mirrors the watch NDJSON stream to a file, rotated per connection
// session so each reconnect starts a fresh file when the path is templated.
type capture struct {
	path string

	mu       sync.Mutex
	session  int
	file     *os.File
	buffered *bufio.Writer
	writer   *output.NDJSONWriter
}

func newCapture(path string) *capture {
	return &capture{path: path}
}

// Rotate closes the current session file and opens the next one. Returns the
// opened path.
func (c *capture) Rotate() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closeLocked()
	c.session++

	path := c.sessionPath(c.session)
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}

	c.file = file
	c.buffered = bufio.NewWriter(file)
	c.writer = output.NewNDJSONWriter(c.buffered)
	return path, nil
}

// Writer returns the NDJSON writer for the current session, nil before the
// first Rotate.
func (c *capture) Writer() *output.NDJSONWriter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writer
}

// Sync flushes buffered lines to disk so the file stays tailable.
func (c *capture) Sync() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.buffered != nil {
		c.buffered.Flush()
	}
}

func (c *capture) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *capture) closeLocked() {
	if c.buffered != nil {
		c.buffered.Flush()
		c.buffered = nil
	}
	if c.file != nil {
		c.file.Close()
		c.file = nil
	}
	c.writer = nil
}

// sessionPath substitutes {session} in the configured path. Without the
// placeholder every session reuses (and truncates) the same file.
func (c *capture) sessionPath(session int) string {
	return strings.ReplaceAll(c.path, "{session}", strconv.Itoa(session))
}

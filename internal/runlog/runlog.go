// SPDX-License-Identifier: MPL-2.0

// Package runlog records the decisions a run makes as a markdown document and
// mirrors each entry to the console logger.
package runlog

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/log"

	"github.com/typesreg/typesreg/internal/fsutil"
)

// FileName is the name of the log written by the publish workflow.
const FileName = "publish-registry.md"

type (
	// Log is an append-only markdown decision log. It is safe for concurrent use.
	Log struct {
		mu     sync.Mutex
		title  string
		lines  []entry
		logger *log.Logger
	}

	entry struct {
		warn bool
		text string
	}
)

// New returns an empty log with the given heading. A nil logger discards the
// console mirror.
func New(title string, logger *log.Logger) *Log {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Log{title: title, logger: logger}
}

// Logf appends a formatted line and mirrors it at info level.
func (l *Log) Logf(format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	l.append(entry{text: text})
	l.logger.Info(text)
}

// Warnf appends a formatted line flagged as a warning and mirrors it at warn level.
func (l *Log) Warnf(format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	l.append(entry{warn: true, text: text})
	l.logger.Warn(text)
}

func (l *Log) append(e entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, e)
}

// Lines returns the plain text of every entry in order.
func (l *Log) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.lines))
	for i, e := range l.lines {
		out[i] = e.text
	}
	return out
}

// Markdown renders the log as a heading followed by a bullet list.
// Multi-line entries (npm diagnostics) become fenced blocks.
func (l *Log) Markdown() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	var sb strings.Builder
	sb.WriteString("# ")
	sb.WriteString(l.title)
	sb.WriteString("\n\n")
	for _, e := range l.lines {
		prefix := "- "
		if e.warn {
			prefix = "- **Warning:** "
		}
		first, rest, multiline := strings.Cut(e.text, "\n")
		sb.WriteString(prefix)
		sb.WriteString(first)
		sb.WriteString("\n")
		if multiline {
			sb.WriteString("\n  ```\n")
			for line := range strings.SplitSeq(strings.TrimRight(rest, "\n"), "\n") {
				sb.WriteString("  ")
				sb.WriteString(line)
				sb.WriteString("\n")
			}
			sb.WriteString("  ```\n")
		}
	}
	return sb.String()
}

// Write stores the markdown under dir/FileName and returns the file path.
func (l *Log) Write(dir string) (string, error) {
	path := filepath.Join(dir, FileName)
	if err := fsutil.WriteFile(path, []byte(l.Markdown())); err != nil {
		return "", fmt.Errorf("writing run log: %w", err)
	}
	return path, nil
}

// Render formats the log for a terminal using the given glamour style
// ("dark", "light", "notty", ...).
func (l *Log) Render(style string) (string, error) {
	return glamour.Render(l.Markdown(), style)
}

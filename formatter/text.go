package formatter

import (
	"bytes"
	"io"
	"strings"

	"github.com/wobyy/wlogging/core"
)

// DefaultTextTimestampFormat renders 23-character timestamps with milliseconds
const DefaultTextTimestampFormat = "2006-01-02 15:04:05,000"

// levelWidth is the column the level name is centred in
const levelWidth = 7

// TextFormatter formats log entries as human-readable text:
//
//	2026-01-15 12:00:00,000 - WARNING - server - disk almost full
type TextFormatter struct {
	Config
}

// NewTextFormatter creates a new text formatter
func NewTextFormatter(cfg Config) *TextFormatter {
	if cfg.TimestampFormat == "" {
		cfg.TimestampFormat = DefaultTextTimestampFormat
	}
	return &TextFormatter{Config: cfg}
}

// Format formats an entry as text
func (f *TextFormatter) Format(entry *core.Entry) ([]byte, error) {
	buf := getBuffer()
	defer putBuffer(buf)

	f.formatToBuffer(entry, buf)
	return copyOut(buf), nil
}

// FormatTo formats an entry and writes it directly to the writer
func (f *TextFormatter) FormatTo(entry *core.Entry, w io.Writer) error {
	buf := getBuffer()

	f.formatToBuffer(entry, buf)

	_, err := w.Write(buf.Bytes())
	putBuffer(buf)
	return err
}

// formatToBuffer writes the formatted entry into the given buffer
func (f *TextFormatter) formatToBuffer(entry *core.Entry, buf *bytes.Buffer) {
	// Timestamp, left aligned in the width of the default layout
	start := buf.Len()
	buf.Write(entry.Time.AppendFormat(buf.AvailableBuffer(), f.TimestampFormat))
	for n := buf.Len() - start; n < len(DefaultTextTimestampFormat); n++ {
		buf.WriteByte(' ')
	}

	buf.WriteString(" - ")
	writeCentered(buf, entry.Level.String(), levelWidth)
	buf.WriteString(" - ")
	buf.WriteString(entry.Caller.Module)
	buf.WriteString(" - ")
	buf.WriteString(entry.Message)
	buf.WriteByte('\n')
}

// writeCentered pads s to width, putting the odd space on the right
func writeCentered(buf *bytes.Buffer, s string, width int) {
	pad := width - len(s)
	if pad <= 0 {
		buf.WriteString(s)
		return
	}
	left := pad / 2
	buf.WriteString(strings.Repeat(" ", left))
	buf.WriteString(s)
	buf.WriteString(strings.Repeat(" ", pad-left))
}

// PlainFormatter writes the bare message, like a print statement
type PlainFormatter struct{}

// NewPlainFormatter creates a new message-only formatter
func NewPlainFormatter() *PlainFormatter {
	return &PlainFormatter{}
}

// Format returns the message followed by a newline
func (f *PlainFormatter) Format(entry *core.Entry) ([]byte, error) {
	out := make([]byte, 0, len(entry.Message)+1)
	out = append(out, entry.Message...)
	return append(out, '\n'), nil
}

// FormatTo writes the message followed by a newline
func (f *PlainFormatter) FormatTo(entry *core.Entry, w io.Writer) error {
	buf := getBuffer()
	buf.WriteString(entry.Message)
	buf.WriteByte('\n')
	_, err := w.Write(buf.Bytes())
	putBuffer(buf)
	return err
}

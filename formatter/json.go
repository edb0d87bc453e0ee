package formatter

import (
	"io"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"

	"github.com/wobyy/wlogging/core"
)

// Structured record keys, one JSON object per line
const (
	KeyLevel      = "level"
	KeyTimestamp  = "timestamp"
	KeyMessage    = "message"
	KeyLogger     = "logger"
	KeyPathname   = "pathname"
	KeyModule     = "module"
	KeyFunction   = "function"
	KeyLine       = "line"
	KeyThreadName = "thread_name"
)

// RecordKeys lists every key a structured record carries
var RecordKeys = []string{
	KeyLevel, KeyTimestamp, KeyMessage, KeyLogger,
	KeyPathname, KeyModule, KeyFunction, KeyLine, KeyThreadName,
}

// rootLoggerName stands in for entries without a logger name so the
// logger key is always present
const rootLoggerName = "root"

// JSONFormatter formats log entries as JSON lines with a fixed key set.
// Encoding is delegated to zapcore's JSON encoder, which is safe for
// concurrent EncodeEntry calls.
type JSONFormatter struct {
	Config
	enc zapcore.Encoder
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(cfg Config) *JSONFormatter {
	timeEncoder := zapcore.RFC3339NanoTimeEncoder
	if cfg.TimestampFormat != "" {
		timeEncoder = zapcore.TimeEncoderOfLayout(cfg.TimestampFormat)
	}
	enc := zapcore.NewJSONEncoder(zapcore.EncoderConfig{
		LevelKey:       KeyLevel,
		TimeKey:        KeyTimestamp,
		MessageKey:     KeyMessage,
		NameKey:        KeyLogger,
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    encodeLevel,
		EncodeTime:     timeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	})
	return &JSONFormatter{Config: cfg, enc: enc}
}

// encodeLevel writes the wlogging level name rather than zap's
func encodeLevel(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(core.Level(l).String())
}

// Format formats an entry as JSON
func (f *JSONFormatter) Format(entry *core.Entry) ([]byte, error) {
	buf, err := f.encode(entry)
	if err != nil {
		return nil, err
	}
	defer buf.Free()

	result := make([]byte, buf.Len())
	copy(result, buf.Bytes())
	return result, nil
}

// FormatTo formats an entry as JSON and writes it directly to the writer
func (f *JSONFormatter) FormatTo(entry *core.Entry, w io.Writer) error {
	buf, err := f.encode(entry)
	if err != nil {
		return err
	}
	_, err = w.Write(buf.Bytes())
	buf.Free()
	return err
}

func (f *JSONFormatter) encode(entry *core.Entry) (*buffer.Buffer, error) {
	ts := entry.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	name := entry.LoggerName
	if name == "" {
		name = rootLoggerName
	}

	ent := zapcore.Entry{
		Level:      zapcore.Level(entry.Level),
		Time:       ts.UTC(),
		LoggerName: name,
		Message:    entry.Message,
	}
	fields := []zapcore.Field{
		zap.String(KeyPathname, entry.Caller.File),
		zap.String(KeyModule, entry.Caller.Module),
		zap.String(KeyFunction, entry.Caller.Function),
		zap.Int(KeyLine, entry.Caller.Line),
		zap.String(KeyThreadName, entry.ThreadName),
	}
	return f.enc.EncodeEntry(ent, fields)
}

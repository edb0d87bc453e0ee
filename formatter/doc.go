// Package formatter defines how log entries are serialized into bytes.
//
// It exposes two interfaces: Formatter, which returns a []byte, and
// WriterFormatter, which writes directly to an io.Writer. Handlers
// check for WriterFormatter at construction time and prefer it when
// available, eliminating the intermediate byte slice on the write path.
//
// Three formatters are built in:
//
//   - PlainFormatter writes the bare message, used for print-like output.
//   - TextFormatter writes "<timestamp> - <LEVEL> - <module> - <message>"
//     with a 23-column timestamp and the level centred in 7 columns.
//   - JSONFormatter writes one JSON object per line with exactly the keys
//     level, timestamp, message, logger, pathname, module, function, line
//     and thread_name, encoded by zapcore.
//
// Buffers larger than 64 KiB are not returned to the pool to prevent
// a single large log line from permanently inflating memory usage.
package formatter

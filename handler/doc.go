// Package handler provides the Handler interface and its built-in
// implementations for dispatching log entries to various outputs.
//
// Every handler carries its own minimum level and filters. ConsoleHandler
// and FileHandler write synchronously; asynchronous delivery is provided
// by wrapping a handler in a QueueHandler:
//
//	file, _ := handler.NewFileHandler(handler.FileConfig{
//		Filename:    "logs/logs.jsonl",
//		MaxBytes:    5_000_000,
//		BackupCount: 10,
//	})
//	q := handler.NewQueueHandler(file, handler.QueueConfig{})
//	q.Start()
//	defer q.Stop()
//
// The QueueHandler runs exactly one consumer goroutine. When its buffer is
// full it applies an OverflowPolicy: Block (default, optionally bounded by
// a timeout after which the record is dropped), DropNewest or DropOldest.
//
// Built-in handlers:
//
//   - ConsoleHandler writes formatted entries to any io.Writer (default: stdout).
//   - FileHandler appends to a file, rotates it by size into numbered
//     backups and serializes appends across processes with a lock file.
//   - QueueHandler buffers entries for a single background consumer.
//   - MultiHandler fans out a single entry to multiple child handlers.
//   - SlogHandler adapts the Handler interface to log/slog.Handler.
//
// Handlers track dropped, blocked, and processed counts via the Stats
// type, which can be queried at runtime for monitoring.
package handler

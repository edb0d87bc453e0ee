// Package logger is the object applications log through.
//
// A Logger is immutable after construction: its name, level, filters and
// handler are set once via the Builder and never modified, so it is safe
// for concurrent use without locking on the read path.
//
// Each severity has a method. With extra arguments the message is a fmt
// format string:
//
//	log.Warning("disk %d%% full", 91)
//	log.Announce("Training finished")
//
// Levels added with core.RegisterLevel are reached through Method:
//
//	trace, _ := log.Method("trace")
//	trace("entering %s", name)
//
// The package keeps a default Logger that writes warnings and above to
// stderr, used by the package-level functions, and a process-wide
// registry holding at most one Logger per name (Register, Get).
package logger

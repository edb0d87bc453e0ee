// Package core defines the shared types used across wlogging.
//
// It provides the Level type for severity gating, the Entry type that
// represents a single log record, and the process-wide severity registry.
//
// Levels use the classic numeric ranks (DEBUG=10 up to CRITICAL=50). The
// print-like AnnounceLevel sits at 100, above every standard level, so a
// minimum-level gate never suppresses it. AnnounceLevel is a first-class
// member of the enumeration; RegisterLevel exists for hosts that want
// additional named ranks and to make repeated registration of ANNOUNCE
// idempotent.
//
// An Entry is immutable once it has been handed to a handler. Handlers may
// pass the same *Entry to several sinks and to background goroutines, so
// nothing downstream of the logger is allowed to write to it.
package core

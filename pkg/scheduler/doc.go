// Package scheduler provides the Scheduler, which persists triggers,
// polls storage for due ones, and dispatches their handlers.
package scheduler

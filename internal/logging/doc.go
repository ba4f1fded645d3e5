// Package logging provides structured logging with optional file rotation
// for dwhsync. With a configured log file, JSON lines are written (rotated
// by lumberjack) so they can be read back by the logs command.
//
// Without a file, logging goes to stderr only: text on a terminal, JSON
// when piped or running in a container.
package logging

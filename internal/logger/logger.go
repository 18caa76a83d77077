package logger

import (
	"io"
	"log"
	"os"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Default rotation settings.
const (
	DefaultMaxSizeMB  = 10 // MB
	DefaultMaxBackups = 3  // number of backup files
	DefaultMaxAgeDays = 7  // days
)

// Config describes where the process log goes. Rotation parameters follow
// lumberjack semantics.
type Config struct {
	File       string // optional rotated log file
	Console    bool   // also write to stderr
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Writer builds the combined destination. The returned closer releases the
// log file, if any.
func (c Config) Writer() (io.Writer, io.Closer) {
	var writers []io.Writer
	var closer io.Closer = nopCloser{}

	if c.Console {
		writers = append(writers, os.Stderr)
	}
	if c.File != "" {
		f := &lj.Logger{
			Filename:   c.File,
			MaxSize:    valOr(c.MaxSizeMB, DefaultMaxSizeMB),
			MaxBackups: valOr(c.MaxBackups, DefaultMaxBackups),
			MaxAge:     valOr(c.MaxAgeDays, DefaultMaxAgeDays),
			Compress:   c.Compress,
		}
		writers = append(writers, f)
		closer = f
	}

	switch len(writers) {
	case 0:
		return io.Discard, closer
	case 1:
		return writers[0], closer
	default:
		return io.MultiWriter(writers...), closer
	}
}

// Setup points the standard logger at the configured destination.
func Setup(c Config) io.Closer {
	w, closer := c.Writer()
	log.SetOutput(w)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	return closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func valOr(v int, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

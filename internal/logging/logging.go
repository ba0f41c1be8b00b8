// Package logging configures the process-wide logrus logger. Console output
// goes to stderr; an optional build log file receives every entry without
// colors, along with the output of the native tools.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
)

// Options control Setup.
type Options struct {
	Verbose bool
	LogFile string
	Output  io.Writer // defaults to os.Stderr
}

// Session is the configured logging state. Close releases the log file.
type Session struct {
	file *os.File
}

// Setup configures logrus and returns a session whose ToolOutput writers
// should be handed to the subprocess runner.
func Setup(opts Options) (*Session, error) {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	logrus.SetOutput(out)
	logrus.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
	})
	logrus.StandardLogger().ReplaceHooks(make(logrus.LevelHooks))
	logrus.SetLevel(logrus.InfoLevel)
	if opts.Verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	s := &Session{}
	if opts.LogFile == "" {
		return s, nil
	}

	if err := os.MkdirAll(filepath.Dir(opts.LogFile), 0755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.Create(opts.LogFile)
	if err != nil {
		return nil, fmt.Errorf("creating log file %s: %w", opts.LogFile, err)
	}
	s.file = f

	logrus.AddHook(lfshook.NewHook(f, &logrus.TextFormatter{
		DisableColors: true,
	}))
	return s, nil
}

// ToolOutput wraps w so that subprocess output is also recorded in the log file.
func (s *Session) ToolOutput(w io.Writer) io.Writer {
	if s == nil || s.file == nil {
		return w
	}
	return io.MultiWriter(w, s.file)
}

// Close flushes and closes the log file, if any.
func (s *Session) Close() error {
	if s == nil || s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

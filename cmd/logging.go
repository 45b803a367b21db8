package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var logLevels = map[string]slog.Level{
	"DEBUG": slog.LevelDebug,
	"INFO":  slog.LevelInfo,
	"WARN":  slog.LevelWarn,
	"ERROR": slog.LevelError,
}

func parseLogLevel(s string) (slog.Level, error) {
	level, ok := logLevels[strings.ToUpper(strings.TrimSpace(s))]
	if !ok {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

// tagWriter filters log.Printf output by its [LEVEL] tag. Untagged lines
// count as INFO. With a JSON handler each line becomes one record.
type tagWriter struct {
	mu      sync.Mutex
	out     io.Writer
	min     slog.Level
	handler slog.Handler
}

func (w *tagWriter) Write(p []byte) (int, error) {
	line := strings.TrimRight(string(p), "\n")
	level, msg := splitTag(line)
	if level < w.min {
		return len(p), nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.handler == nil {
		_, err := w.out.Write(p)
		return len(p), err
	}
	logger := slog.New(w.handler)
	logger.Log(context.Background(), level, msg)
	return len(p), nil
}

// splitTag finds the first known [LEVEL] tag and removes it from line
func splitTag(line string) (slog.Level, string) {
	start := strings.IndexByte(line, '[')
	if start < 0 {
		return slog.LevelInfo, line
	}
	end := strings.IndexByte(line[start:], ']')
	if end < 0 {
		return slog.LevelInfo, line
	}
	level, ok := logLevels[line[start+1:start+end]]
	if !ok {
		return slog.LevelInfo, line
	}
	rest := strings.TrimPrefix(line[start+end+1:], " ")
	return level, line[:start] + rest
}

func configureLogging(level string, jsonLogs bool) error {
	minLevel, err := parseLogLevel(level)
	if err != nil {
		return err
	}
	w := &tagWriter{out: os.Stderr, min: minLevel}
	if jsonLogs {
		w.handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: minLevel})
		log.SetFlags(0)
	} else {
		log.SetFlags(log.LstdFlags)
	}
	log.SetOutput(w)
	return nil
}

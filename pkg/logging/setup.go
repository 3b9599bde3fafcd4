package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	"github.com/S1riyS/happyphone/server/pkg/logging/slogpretty"
	slogmulti "github.com/samber/slog-multi"
	slogjournal "github.com/systemd/slog-journal"
)

type Options struct {
	Level   string
	Console io.Writer
	// File receives JSON records in addition to the console; empty disables it.
	File string
	// Journal forces the systemd journal sink even outside a .service cgroup.
	Journal bool
}

// New builds the process logger. The returned closer releases the log file.
func New(opts Options) (*slog.Logger, func() error, error) {
	level := ParseLevel(opts.Level)
	closer := func() error { return nil }

	var handlers []slog.Handler

	underSystemd := isSystemdService()
	if !underSystemd && opts.Console != nil {
		pretty := slogpretty.PrettyHandlerOptions{
			SlogOpts: &slog.HandlerOptions{Level: level},
		}
		handlers = append(handlers, pretty.NewPrettyHandler(opts.Console))
	}

	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, closer, fmt.Errorf("open log file: %w", err)
		}
		closer = f.Close
		handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level}))
	}

	if underSystemd || opts.Journal {
		journal, err := slogjournal.NewHandler(&slogjournal.Options{
			ReplaceGroup: func(key string) string {
				return toJournalKey(key)
			},
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				a.Key = toJournalKey(a.Key)
				return a
			},
		})
		if err == nil {
			handlers = append(handlers, journal)
		} else if len(handlers) > 0 {
			record := slog.NewRecord(time.Now(), slog.LevelWarn, "systemd journal unavailable", 0)
			record.Add("error", err.Error())
			_ = handlers[0].Handle(context.Background(), record)
		}
	}

	if len(handlers) == 0 {
		handlers = append(handlers, slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	}

	return slog.New(slogmulti.Fanout(handlers...)), closer, nil
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func toJournalKey(str string) string {
	str = strings.ToUpper(str)
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return r
		}
		return '_'
	}, str)
}

func isSystemdService() bool {
	content, err := os.ReadFile("/proc/self/cgroup")
	if err != nil {
		return false
	}
	parts := strings.Split(strings.TrimSpace(string(content)), ":")
	if len(parts) < 3 {
		return false
	}
	cgroup := parts[2]
	return strings.HasSuffix(cgroup, ".service") || strings.HasSuffix(path.Dir(cgroup), ".service")
}

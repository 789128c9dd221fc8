package log

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Logger is a slog.Logger tagged with the component that emits it. The
// component attribute is attached once; deriving a logger for another
// component replaces it instead of stacking a second one.
type Logger struct {
	*slog.Logger
	base      *slog.Logger
	component string
}

type Config struct {
	Level     slog.Level
	Component string
	// Handler overrides the stdout text handler; Level is then up to it.
	Handler slog.Handler
}

func DefaultConfig() Config {
	return Config{
		Level:     slog.LevelInfo,
		Component: ComponentApp,
	}
}

// ParseLevel maps LOG_LEVEL values onto slog levels.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

func New(config Config) *Logger {
	handler := config.Handler
	if handler == nil {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: config.Level})
	}
	return tagged(slog.New(handler), config.Component)
}

func tagged(base *slog.Logger, component string) *Logger {
	l := &Logger{Logger: base, base: base, component: component}
	if component != "" {
		l.Logger = base.With(FieldComponent, component)
	}
	return l
}

// With returns a logger carrying args in addition to the component.
func (l *Logger) With(args ...any) *Logger {
	return tagged(l.base.With(args...), l.component)
}

// WithComponent returns the same logger reporting as component.
func (l *Logger) WithComponent(component string) *Logger {
	return tagged(l.base, component)
}

// SetDefault installs logger as the process-wide slog default.
func SetDefault(logger *Logger) {
	slog.SetDefault(logger.Logger)
}

func (l *Logger) Component() string {
	return l.component
}

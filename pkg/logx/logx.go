// Package logx provides component-tagged logging with environment-controlled debug output.
package logx

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

const timestampFormat = "2006-01-02T15:04:05.000Z"

// Logger writes lines tagged with the component that produced them.
type Logger struct {
	component string
}

// DebugConfig controls debug logging behavior.
type DebugConfig struct {
	Domains map[string]bool // nil enables every domain
	Enabled bool
}

//nolint:gochecknoglobals // Process-wide log configuration.
var (
	debugConfig = &DebugConfig{}
	debugMutex  sync.RWMutex

	output     io.Writer = os.Stderr
	outputLock sync.Mutex
)

func init() { //nolint:gochecknoinits // Required for env var initialization
	initDebugFromEnv()
}

// initDebugFromEnv reads DEBUG / RTOOL_DEBUG and DEBUG_DOMAINS.
func initDebugFromEnv() {
	debugMutex.Lock()
	defer debugMutex.Unlock()

	for _, name := range []string{"DEBUG", "RTOOL_DEBUG"} {
		if v := os.Getenv(name); v == "1" || strings.EqualFold(v, "true") {
			debugConfig.Enabled = true
		}
	}

	// DEBUG_DOMAINS=build,publish
	if domains := os.Getenv("DEBUG_DOMAINS"); domains != "" {
		debugConfig.Domains = make(map[string]bool)
		for _, domain := range strings.Split(domains, ",") {
			debugConfig.Domains[strings.TrimSpace(domain)] = true
		}
	}
}

// NewLogger creates a logger for the named component.
func NewLogger(component string) *Logger {
	return &Logger{component: component}
}

// SetOutput redirects all log output. Passing nil restores stderr.
func SetOutput(w io.Writer) {
	outputLock.Lock()
	defer outputLock.Unlock()
	if w == nil {
		w = os.Stderr
	}
	output = w
}

// SetDebug enables or disables debug output for all domains.
func SetDebug(enabled bool) {
	debugMutex.Lock()
	defer debugMutex.Unlock()
	debugConfig.Enabled = enabled
}

// IsDebugEnabledForDomain returns whether debug logging is enabled for a specific domain.
func IsDebugEnabledForDomain(domain string) bool {
	debugMutex.RLock()
	defer debugMutex.RUnlock()

	if !debugConfig.Enabled {
		return false
	}
	if debugConfig.Domains == nil {
		return true
	}
	return debugConfig.Domains[domain]
}

func write(component string, level Level, message string) {
	timestamp := time.Now().UTC().Format(timestampFormat)
	line := fmt.Sprintf("[%s] [%s] %s: %s\n", timestamp, component, level, message)

	outputLock.Lock()
	defer outputLock.Unlock()
	_, _ = io.WriteString(output, line)
}

func (l *Logger) log(level Level, format string, args ...any) {
	write(l.component, level, fmt.Sprintf(format, args...))
}

// Debug logs when debugging is enabled for this logger's component.
func (l *Logger) Debug(format string, args ...any) {
	if !IsDebugEnabledForDomain(l.component) {
		return
	}
	l.log(LevelDebug, format, args...)
}

func (l *Logger) Info(format string, args ...any) {
	l.log(LevelInfo, format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.log(LevelWarn, format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.log(LevelError, format, args...)
}

// DebugState logs state transition information.
func (l *Logger) DebugState(action, state string, extra ...string) {
	extraInfo := ""
	if len(extra) > 0 {
		extraInfo = fmt.Sprintf(" - %s", extra[0])
	}
	l.Debug("State %s: %s%s", action, state, extraInfo)
}

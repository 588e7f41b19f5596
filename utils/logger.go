/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package utils

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

type Logger = logrus.Logger

const defaultTimestampFormat = "2006-01-02 15:04:05.000"

var (
	consoleLevel     atomic.Uint32
	fileLevel        atomic.Uint32
	consoleLogFormat           = EnvDefaultString("CONSOLE_LOG_FORMAT", "text")
	loggerOutput     io.Writer = os.Stdout
	loggerRegistryMu sync.RWMutex
	loggerRegistry   = map[string]*logrus.Logger{}
)

func init() {
	lvl := ParseLogLevel(EnvDefaultString("LOG_LEVEL", "info"))
	consoleLevel.Store(uint32(lvl))
	fileLevel.Store(uint32(ParseLogLevel(EnvDefaultString("FILE_LOG_LEVEL", lvl.String()))))
}

// LogConfig is the "log" section of the configuration file.
type LogConfig struct {
	Level  string        `json:"level" yaml:"level" env:"LOG_LEVEL"`
	Format string        `json:"format" yaml:"format" env:"CONSOLE_LOG_FORMAT"`
	File   FileLogConfig `json:"file" yaml:"file"`
}

// ConfigureLogging applies cfg to the console and, when enabled, to the
// daily rolling log files of every registered and future logger.
func ConfigureLogging(cfg LogConfig) error {
	if cfg.Format != "" {
		ConfigureConsoleLogFormat(cfg.Format)
	}
	if cfg.Level != "" {
		ConfigureConsoleLogLevel(cfg.Level)
	}
	return configureFileLogging(cfg.File)
}

// ConfigureConsoleLogFormat switches newly created loggers between "text" and "json".
func ConfigureConsoleLogFormat(format string) {
	loggerRegistryMu.Lock()
	defer loggerRegistryMu.Unlock()
	consoleLogFormat = normalizeFormat(format)
}

func normalizeFormat(format string) string {
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return "json"
	}
	return "text"
}

// ConfigureOutput redirects console output of every logger to w.
func ConfigureOutput(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	loggerRegistryMu.Lock()
	defer loggerRegistryMu.Unlock()
	loggerOutput = w
}

func consoleOutput() io.Writer {
	loggerRegistryMu.RLock()
	defer loggerRegistryMu.RUnlock()
	return loggerOutput
}

func ParseLogLevel(s string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "info", "":
		return logrus.InfoLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.InfoLevel
	}
}

func RegisterLogger(name string, l *logrus.Logger) {
	loggerRegistryMu.Lock()
	defer loggerRegistryMu.Unlock()
	loggerRegistry[name] = l
}

// LookupLogger returns the registered logger with the given name.
func LookupLogger(name string) (*logrus.Logger, bool) {
	loggerRegistryMu.RLock()
	defer loggerRegistryMu.RUnlock()
	l, ok := loggerRegistry[name]
	return l, ok
}

// baseLevel is the more verbose of the console and, while file logging is
// on, file levels; each hook filters further.
func baseLevel() logrus.Level {
	c, f := logrus.Level(consoleLevel.Load()), logrus.Level(fileLevel.Load())
	if !fileLogEnabled.Load() || c >= f {
		return c
	}
	return f
}

func applyBaseLevelToRegistered() {
	base := baseLevel()
	loggerRegistryMu.RLock()
	defer loggerRegistryMu.RUnlock()
	for _, lg := range loggerRegistry {
		lg.SetLevel(base)
	}
}

func SetAllLoggersLevel(lvl logrus.Level) {
	consoleLevel.Store(uint32(lvl))
	fileLevel.Store(uint32(lvl))
	applyBaseLevelToRegistered()
}

// ConfigureConsoleLogLevel sets the level written to the console.
func ConfigureConsoleLogLevel(levelStr string) {
	consoleLevel.Store(uint32(ParseLogLevel(levelStr)))
	applyBaseLevelToRegistered()
}

// ConfigureFileLogLevel sets the level written to the log files.
func ConfigureFileLogLevel(levelStr string) {
	fileLevel.Store(uint32(ParseLogLevel(levelStr)))
	applyBaseLevelToRegistered()
}

// SetLoggerLevel changes the level of a named logger. It reports false when
// no logger has been registered under that name.
func SetLoggerLevel(name string, lvlStr string) bool {
	lg, ok := LookupLogger(name)
	if !ok {
		return false
	}
	lg.SetLevel(ParseLogLevel(lvlStr))
	return true
}

type consoleWriterHook struct {
	formatter logrus.Formatter
}

func (h *consoleWriterHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *consoleWriterHook) Fire(e *logrus.Entry) error {
	if e.Level > logrus.Level(consoleLevel.Load()) {
		return nil
	}
	b, err := h.formatter.Format(e)
	if err != nil {
		return err
	}
	_, err = consoleOutput().Write(b)
	return err
}

// NewLogger returns the logger registered under name, creating it on first use.
// Entries reach the console through a hook, and the log files too once file
// logging is enabled.
func NewLogger(name string) *logrus.Logger {
	if l, ok := LookupLogger(name); ok {
		return l
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(baseLevel())
	l.SetReportCaller(true)

	loggerRegistryMu.RLock()
	format := consoleLogFormat
	loggerRegistryMu.RUnlock()
	if format == "json" {
		l.SetFormatter(newJSONFormatter(name, PathFormatFilenameOnly))
	} else {
		l.SetFormatter(&TextFormatter{LoggerName: name, NameWidth: 10})
	}
	l.AddHook(&consoleWriterHook{formatter: l.Formatter})

	RegisterLogger(name, l)
	if err := attachFileHook(name, l); err != nil {
		fmt.Fprintf(os.Stderr, "logger %s: file logging disabled: %v\n", name, err)
	}
	return l
}

// TextFormatter renders "time LEVEL pid - [name] file:line : message k=v".
type TextFormatter struct {
	LoggerName      string
	TimestampFormat string
	NameWidth       int
	DisableColors   bool
	PathFmt         PathFormat
}

func (f *TextFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	tsFormat := f.TimestampFormat
	if tsFormat == "" {
		tsFormat = defaultTimestampFormat
	}
	lvl := fmt.Sprintf("%7s", strings.ToUpper(entry.Level.String()))
	name := f.LoggerName
	if f.NameWidth > 0 && len(name) > f.NameWidth {
		name = name[:f.NameWidth]
	}
	name = fmt.Sprintf("%*s", f.NameWidth, name)

	caller := ""
	if entry.Caller != nil {
		caller = " " + formatCaller(entry.Caller, f.PathFmt)
	}

	if !f.DisableColors {
		lvl = levelColor(entry.Level).Sprint(lvl)
		name = color.CyanString(name)
		caller = color.New(color.Faint).Sprint(caller)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %-6d - [%s]%s : %s", entry.Time.Format(tsFormat), lvl, os.Getpid(), name, caller, entry.Message)
	if len(entry.Data) > 0 {
		keys := make([]string, 0, len(entry.Data))
		for k := range entry.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, entry.Data[k])
		}
	}
	b.WriteByte('\n')
	return []byte(b.String()), nil
}

// jsonFormatter adds the logger name to logrus' JSON output.
type jsonFormatter struct {
	name  string
	inner *logrus.JSONFormatter
}

func newJSONFormatter(name string, pathFmt PathFormat) *jsonFormatter {
	return &jsonFormatter{
		name: name,
		inner: &logrus.JSONFormatter{
			TimestampFormat: defaultTimestampFormat,
			FieldMap:        logrus.FieldMap{logrus.FieldKeyMsg: "message"},
			CallerPrettyfier: func(frame *runtime.Frame) (string, string) {
				return "", formatCaller(frame, pathFmt)
			},
		},
	}
}

func (f *jsonFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	named := entry.WithField("logger", f.name)
	named.Time = entry.Time
	named.Level = entry.Level
	named.Message = entry.Message
	named.Caller = entry.Caller
	return f.inner.Format(named)
}

func levelColor(level logrus.Level) *color.Color {
	switch level {
	case logrus.TraceLevel, logrus.DebugLevel:
		return color.New(color.FgBlue)
	case logrus.InfoLevel:
		return color.New(color.FgGreen)
	case logrus.WarnLevel:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}

func EnvDefaultString(key string, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return def
		}
		return b
	}
	return def
}

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
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

const dateDirFormat = "2006-01-02"

// FileLogConfig controls the daily rolling log files. Files are written to
// <Dir>/<yyyy-mm-dd>/<level>.log; fatal and panic entries go to error.log.
// Dated directories older than MaxAgeDays are removed when the day rolls
// over; zero or less keeps every day.
type FileLogConfig struct {
	Enabled    bool   `json:"enabled" yaml:"enabled" env:"FILE_LOG_ENABLED"`
	Dir        string `json:"dir" yaml:"dir" env:"FILE_LOG_DIR"`
	Level      string `json:"level" yaml:"level" env:"FILE_LOG_LEVEL"`
	Format     string `json:"format" yaml:"format" env:"FILE_LOG_FORMAT"`
	MaxAgeDays int    `json:"max_age_days" yaml:"max_age_days" env:"FILE_LOG_MAX_AGE_DAYS"`
}

var (
	fileLogEnabled atomic.Bool

	fileLogMu         sync.Mutex
	fileLogDir        = EnvDefaultString("FILE_LOG_DIR", "logs")
	fileLogMaxAgeDays int
	fileLogFormat     = normalizeFormat(EnvDefaultString("FILE_LOG_FORMAT", "text"))
	fileHooks         = map[string]*levelWriterHook{}
)

func init() {
	fileLogEnabled.Store(EnvDefaultBool("FILE_LOG_ENABLED", false))
}

func configureFileLogging(cfg FileLogConfig) error {
	if cfg.Format != "" {
		ConfigureFileLogFormat(cfg.Format)
	}
	if cfg.Level != "" {
		ConfigureFileLogLevel(cfg.Level)
	}
	ConfigureFileLog(cfg.Dir, cfg.MaxAgeDays)
	if !cfg.Enabled {
		return nil
	}
	return EnableFileLog()
}

// ConfigureFileLog sets the directory and retention used by file hooks
// attached afterwards. An empty dir keeps the current one.
func ConfigureFileLog(dir string, maxAgeDays int) {
	fileLogMu.Lock()
	defer fileLogMu.Unlock()
	if dir != "" {
		fileLogDir = dir
	}
	fileLogMaxAgeDays = maxAgeDays
}

func ConfigureFileLogFormat(format string) {
	fileLogMu.Lock()
	defer fileLogMu.Unlock()
	fileLogFormat = normalizeFormat(format)
}

// EnableFileLog turns on file logging for every registered logger and for
// loggers created later. Loggers already writing files are re-pointed at the
// current directory.
func EnableFileLog() error {
	fileLogMu.Lock()
	defer fileLogMu.Unlock()
	if err := os.MkdirAll(fileLogDir, 0o755); err != nil {
		return fmt.Errorf("create log dir %s: %w", fileLogDir, err)
	}
	fileLogEnabled.Store(true)
	detachFileHooksLocked()

	loggerRegistryMu.RLock()
	loggers := make(map[string]*logrus.Logger, len(loggerRegistry))
	for name, l := range loggerRegistry {
		loggers[name] = l
	}
	loggerRegistryMu.RUnlock()

	var errs []error
	for name, l := range loggers {
		errs = append(errs, attachFileHookLocked(name, l))
	}
	applyBaseLevelToRegistered()
	return errors.Join(errs...)
}

// DisableFileLog removes the file hooks and closes their files.
func DisableFileLog() error {
	fileLogMu.Lock()
	defer fileLogMu.Unlock()
	fileLogEnabled.Store(false)
	err := detachFileHooksLocked()
	applyBaseLevelToRegistered()
	return err
}

func attachFileHook(name string, l *logrus.Logger) error {
	if !fileLogEnabled.Load() {
		return nil
	}
	fileLogMu.Lock()
	defer fileLogMu.Unlock()
	return attachFileHookLocked(name, l)
}

func attachFileHookLocked(name string, l *logrus.Logger) error {
	if _, ok := fileHooks[name]; ok {
		return nil
	}
	hook, err := addDailyRollingFileHook(l, name, fileLogDir, fileLogMaxAgeDays, fileLogFormat)
	if err != nil {
		return err
	}
	fileHooks[name] = hook
	return nil
}

func detachFileHooksLocked() error {
	var errs []error
	for name, hook := range fileHooks {
		if l, ok := LookupLogger(name); ok {
			old := l.ReplaceHooks(make(logrus.LevelHooks))
			kept := make(logrus.LevelHooks)
			for lvl, hooks := range old {
				for _, h := range hooks {
					if h != logrus.Hook(hook) {
						kept[lvl] = append(kept[lvl], h)
					}
				}
			}
			l.ReplaceHooks(kept)
		}
		errs = append(errs, hook.Close())
		delete(fileHooks, name)
	}
	return errors.Join(errs...)
}

type levelWriterHook struct {
	writers   map[logrus.Level]io.Writer
	formatter logrus.Formatter
}

func (h *levelWriterHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *levelWriterHook) Fire(e *logrus.Entry) error {
	if e.Level > logrus.Level(fileLevel.Load()) {
		return nil
	}
	w, ok := h.writers[e.Level]
	if !ok || w == nil {
		return nil
	}
	b, err := h.formatter.Format(e)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

func (h *levelWriterHook) Close() error {
	seen := map[io.Writer]bool{}
	var errs []error
	for _, w := range h.writers {
		if seen[w] {
			continue
		}
		seen[w] = true
		if c, ok := w.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}

type dailyLevelWriter struct {
	baseDir    string
	level      string
	maxAgeDays int
	now        func() time.Time

	mu      sync.Mutex
	curDate string
	file    *os.File
}

func newDailyLevelWriter(baseDir, level string, maxAgeDays int) *dailyLevelWriter {
	return &dailyLevelWriter{baseDir: baseDir, level: level, maxAgeDays: maxAgeDays, now: time.Now}
}

func (w *dailyLevelWriter) ensureOpen(date string) error {
	if w.file != nil && w.curDate == date {
		return nil
	}
	if w.file != nil {
		_ = w.file.Close()
		w.file = nil
	}
	dir := filepath.Join(w.baseDir, date)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(dir, w.level+".log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	w.file = f
	w.curDate = date
	return nil
}

// cleanup removes dated directories that fall before the retention window.
func (w *dailyLevelWriter) cleanup(now time.Time) {
	if w.maxAgeDays <= 0 {
		return
	}
	cutoff := now.AddDate(0, 0, -w.maxAgeDays)
	cutoff = time.Date(cutoff.Year(), cutoff.Month(), cutoff.Day(), 0, 0, 0, 0, time.Local)

	entries, err := os.ReadDir(w.baseDir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		d, err := time.ParseInLocation(dateDirFormat, e.Name(), time.Local)
		if err != nil {
			continue
		}
		if d.Before(cutoff) {
			_ = os.RemoveAll(filepath.Join(w.baseDir, e.Name()))
		}
	}
}

func (w *dailyLevelWriter) Write(p []byte) (int, error) {
	now := w.now()
	date := now.Format(dateDirFormat)
	w.mu.Lock()
	defer w.mu.Unlock()
	rolled := w.curDate != date
	if err := w.ensureOpen(date); err != nil {
		return 0, err
	}
	if rolled {
		w.cleanup(now)
	}
	return w.file.Write(p)
}

func (w *dailyLevelWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	w.curDate = ""
	return err
}

// AddDailyRollingFileHook attaches a hook that writes l's entries to one file
// per level under dir, rolling to a new dated directory every day.
func AddDailyRollingFileHook(l *logrus.Logger, name, dir string, maxAgeDays int) error {
	fileLogMu.Lock()
	format := fileLogFormat
	fileLogMu.Unlock()
	_, err := addDailyRollingFileHook(l, name, dir, maxAgeDays, format)
	return err
}

func addDailyRollingFileHook(l *logrus.Logger, name, dir string, maxAgeDays int, format string) (*levelWriterHook, error) {
	if dir == "" {
		dir = "logs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	var fileFmt logrus.Formatter
	if format == "json" {
		fileFmt = newJSONFormatter(name, PathFormatFullRelative)
	} else {
		fileFmt = &TextFormatter{LoggerName: name, NameWidth: 10, DisableColors: true, PathFmt: PathFormatFullRelative}
	}

	errorW := newDailyLevelWriter(dir, "error", maxAgeDays)
	hook := &levelWriterHook{
		writers: map[logrus.Level]io.Writer{
			logrus.TraceLevel: newDailyLevelWriter(dir, "trace", maxAgeDays),
			logrus.DebugLevel: newDailyLevelWriter(dir, "debug", maxAgeDays),
			logrus.InfoLevel:  newDailyLevelWriter(dir, "info", maxAgeDays),
			logrus.WarnLevel:  newDailyLevelWriter(dir, "warn", maxAgeDays),
			logrus.ErrorLevel: errorW,
			logrus.FatalLevel: errorW,
			logrus.PanicLevel: errorW,
		},
		formatter: fileFmt,
	}
	l.AddHook(hook)
	return hook, nil
}

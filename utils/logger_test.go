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
	"bytes"
	"runtime"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, ParseLogLevel(" DEBUG "))
	assert.Equal(t, logrus.WarnLevel, ParseLogLevel("warning"))
	assert.Equal(t, logrus.InfoLevel, ParseLogLevel(""))
	assert.Equal(t, logrus.InfoLevel, ParseLogLevel("loud"))
}

func TestNewLogger_Registry(t *testing.T) {
	l := NewLogger("UTILS-TEST")
	assert.Same(t, l, NewLogger("UTILS-TEST"))

	found, ok := LookupLogger("UTILS-TEST")
	require.True(t, ok)
	assert.Same(t, l, found)

	assert.True(t, SetLoggerLevel("UTILS-TEST", "error"))
	assert.Equal(t, logrus.ErrorLevel, l.GetLevel())
	assert.False(t, SetLoggerLevel("UTILS-MISSING", "debug"))
}

func TestTextFormatter(t *testing.T) {
	f := &TextFormatter{LoggerName: "REPOSITORY-LONG", NameWidth: 10, DisableColors: true}
	entry := &logrus.Entry{
		Time:    time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		Level:   logrus.WarnLevel,
		Message: "slow query",
		Data:    logrus.Fields{"table": "member", "rows": 3},
	}
	out, err := f.Format(entry)
	require.NoError(t, err)
	line := string(out)
	assert.Contains(t, line, "2025-01-02 03:04:05.000 WARNING ")
	assert.Contains(t, line, "[REPOSITORY]")
	assert.Contains(t, line, ": slow query rows=3 table=member\n")
}

func TestTextFormatter_PathFormat(t *testing.T) {
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	frame := &runtime.Frame{File: file, Line: 42}
	entry := &logrus.Entry{Time: time.Now(), Level: logrus.InfoLevel, Message: "m", Caller: frame}

	out, err := (&TextFormatter{DisableColors: true}).Format(entry)
	require.NoError(t, err)
	assert.Contains(t, string(out), " logger_test.go:42 : m")

	out, err = (&TextFormatter{DisableColors: true, PathFmt: PathFormatShortRelative}).Format(entry)
	require.NoError(t, err)
	assert.Contains(t, string(out), " utils/logger_test.go:42 : m")
}

func TestConsoleLevel_FiltersOutput(t *testing.T) {
	var buf bytes.Buffer
	ConfigureOutput(&buf)
	defer ConfigureOutput(nil)
	ConfigureConsoleLogLevel("warn")
	defer ConfigureConsoleLogLevel("info")

	l := NewLogger("UTILS-CONSOLE")
	l.Info("quiet")
	l.Warn("loud")
	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), "loud")
}

func TestConfigureOutput(t *testing.T) {
	var buf bytes.Buffer
	ConfigureOutput(&buf)
	defer ConfigureOutput(nil)

	l := NewLogger("UTILS-OUTPUT")
	l.SetLevel(logrus.InfoLevel)
	l.Info("hello")
	assert.Contains(t, buf.String(), "hello")
}

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
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
)

// PathFormat selects how the caller's file is printed.
type PathFormat int

const (
	// PathFormatFilenameOnly prints "member.go:42".
	PathFormatFilenameOnly PathFormat = iota
	// PathFormatShortRelative prints the parent directory and file, "repository/member.go:42".
	PathFormatShortRelative
	// PathFormatFullRelative prints the path from the module root.
	PathFormatFullRelative
)

func formatCaller(frame *runtime.Frame, pf PathFormat) string {
	if frame == nil {
		return ""
	}
	switch pf {
	case PathFormatShortRelative:
		return fmt.Sprintf("%s:%d", shortRelative(frame.File), frame.Line)
	case PathFormatFullRelative:
		rel := moduleRelative(filepath.ToSlash(frame.File))
		return fmt.Sprintf("%s:%d", filepath.FromSlash(rel), frame.Line)
	default:
		return fmt.Sprintf("%s:%d", filepath.Base(frame.File), frame.Line)
	}
}

var (
	moduleRootOnce sync.Once
	moduleRoot     string

	mainModuleBaseOnce  sync.Once
	mainModuleBaseCache string
)

// moduleRelative trims p to the path below the nearest go.mod found from the
// first caller seen. Paths outside that module keep everything from the main
// module's last path element, or are returned as is.
func moduleRelative(p string) string {
	moduleRootOnce.Do(func() {
		moduleRoot = findModuleRootFrom(p)
	})
	if moduleRoot != "" && strings.HasPrefix(p, moduleRoot+"/") {
		return strings.TrimPrefix(p, moduleRoot+"/")
	}
	if base := mainModuleBase(); base != "" {
		if idx := strings.Index(p, "/"+base+"/"); idx >= 0 {
			return p[idx+1:]
		}
	}
	return p
}

func findModuleRootFrom(p string) string {
	dir := filepath.Dir(filepath.FromSlash(p))
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return filepath.ToSlash(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func mainModuleBase() string {
	mainModuleBaseOnce.Do(func() {
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Path != "" {
			parts := strings.Split(info.Main.Path, "/")
			mainModuleBaseCache = parts[len(parts)-1]
		}
	})
	return mainModuleBaseCache
}

func shortRelative(p string) string {
	parts := strings.Split(moduleRelative(filepath.ToSlash(p)), "/")
	if len(parts) >= 2 {
		return parts[len(parts)-2] + "/" + parts[len(parts)-1]
	}
	return parts[0]
}

// Package vfs holds a user's in-memory directory tree and the path rules used to
// walk it. The tree has no parent links, so every walk keeps its own cursor.
package vfs

import (
	"strings"
)

// Resolve turns targetPath into an absolute path relative to currentDir.
// ".." above the root is absorbed.
func Resolve(currentDir, targetPath string) string {
	var parts []string
	if !strings.HasPrefix(targetPath, "/") {
		parts = Split(currentDir)
	}
	parts = append(parts, Split(targetPath)...)

	resolved := make([]string, 0, len(parts))
	for _, part := range parts {
		switch part {
		case "..":
			if len(resolved) > 0 {
				resolved = resolved[:len(resolved)-1]
			}
		case ".":
		default:
			resolved = append(resolved, part)
		}
	}

	return Join(resolved)
}

// Split returns the non-empty segments of p.
func Split(p string) []string {
	raw := strings.Split(p, "/")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

func Join(parts []string) string {
	return "/" + strings.Join(parts, "/")
}

// ChildPath builds a child path from parent + name.
func ChildPath(parent, name string) string {
	if parent == "/" {
		return "/" + name
	}
	return parent + "/" + name
}

package vfs

import (
	"github.com/S1riyS/happyphone/server/internal/models"
	"github.com/S1riyS/happyphone/server/internal/pkg/kerrors"
)

// LookupResult points at the leaf of an absolute path. Parent is the directory
// holding it and Name the leaf's key there; Node is nil when Found is false.
// For "/" Parent is nil, Name is empty and Node is the root.
type LookupResult struct {
	Found  bool
	Node   *models.Node
	Parent *models.Node
	Name   string
}

// Lookup walks every segment of absPath except the last. Missing intermediates
// are created when createDirs is set. The leaf itself is never created.
func Lookup(root *models.Node, absPath string, createDirs bool) (LookupResult, error) {
	parts := Split(absPath)
	if len(parts) == 0 {
		return LookupResult{Found: true, Node: root}, nil
	}

	leaf := parts[len(parts)-1]
	current := root

	for i, part := range parts[:len(parts)-1] {
		next := current.Child(part)
		if next == nil {
			if !createDirs {
				return LookupResult{}, kerrors.New(kerrors.ParentNotFound, "Path not found: %s", Join(parts[:i+1]))
			}
			next = models.NewDir()
			current.SetChild(part, next)
		}
		if !next.IsDir() {
			return LookupResult{}, kerrors.New(kerrors.NotADirectory, "Not a directory: %s", Join(parts[:i+1]))
		}
		current = next
	}

	node := current.Child(leaf)
	return LookupResult{
		Found:  node != nil,
		Node:   node,
		Parent: current,
		Name:   leaf,
	}, nil
}

// WalkDir follows absPath requiring a directory at every step, including the
// last one. It returns the directory or a PathNotFound / NotADirectory error
// naming absPath.
func WalkDir(root *models.Node, absPath string) (*models.Node, error) {
	current := root
	for _, part := range Split(absPath) {
		next := current.Child(part)
		if next == nil {
			return nil, kerrors.New(kerrors.PathNotFound, "%s: No such directory", absPath)
		}
		if !next.IsDir() {
			return nil, kerrors.New(kerrors.NotADirectory, "%s: Not a directory", absPath)
		}
		current = next
	}
	return current, nil
}

package vfs

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/S1riyS/happyphone/server/internal/models"
	"github.com/S1riyS/happyphone/server/internal/pkg/kerrors"
	"github.com/S1riyS/happyphone/server/pkg/logging"
	"github.com/S1riyS/happyphone/server/pkg/logging/slogext"
)

const (
	EmptyDirectory = "Empty directory"
	EmptyFile      = "(empty file)"

	dirMarker  = "📁 "
	fileMarker = "📄 "
)

type Repository interface {
	GetFilesystem(ctx context.Context, userID string) (*models.UserFilesystem, error)
	SaveFilesystem(ctx context.Context, userID string, fs *models.UserFilesystem) error
}

// Store owns one user's tree for the duration of a command. Mutations mark it
// dirty and Commit writes the whole snapshot back.
type Store struct {
	repo             Repository
	userID           string
	fs               *models.UserFilesystem
	maxContentLength int
	dirty            bool
}

// Open loads the user's snapshot, creating the skeleton for new users. An
// existing snapshot is used as stored, deleted system entries included.
func Open(ctx context.Context, repo Repository, userID string, maxContentLength int) (*Store, error) {
	const op = "vfs.Store.Open"
	logger := logging.GetLoggerFromContextWithOp(ctx, op)

	fs, err := repo.GetFilesystem(ctx, userID)
	if err != nil {
		logger.Error("Failed to load filesystem", slogext.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	created := false
	if fs == nil || fs.Root == nil {
		logger.Debug("Creating filesystem")
		fs = NewFilesystem()
		created = true
	}
	if fs.CurrentDir == "" {
		fs.CurrentDir = "/"
	}

	s := NewStore(fs, maxContentLength)
	s.repo = repo
	s.userID = userID
	s.dirty = created
	return s, nil
}

// NewStore wraps an already loaded snapshot. Commit is a no-op without a
// repository.
func NewStore(fs *models.UserFilesystem, maxContentLength int) *Store {
	return &Store{fs: fs, maxContentLength: maxContentLength}
}

// Commit saves the snapshot if anything changed since the last commit.
func (s *Store) Commit(ctx context.Context) error {
	const op = "vfs.Store.Commit"

	if !s.dirty || s.repo == nil {
		return nil
	}
	if err := s.repo.SaveFilesystem(ctx, s.userID, s.fs); err != nil {
		logger := logging.GetLoggerFromContextWithOp(ctx, op)
		logger.Error("Failed to save filesystem", slogext.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	s.dirty = false
	return nil
}

func (s *Store) Dirty() bool {
	return s.dirty
}

func (s *Store) Snapshot() *models.UserFilesystem {
	return s.fs
}

func (s *Store) CurrentDir() string {
	return s.fs.CurrentDir
}

func (s *Store) MaxContentLength() int {
	return s.maxContentLength
}

func (s *Store) Resolve(target string) string {
	return Resolve(s.fs.CurrentDir, target)
}

// ChangeDirectory moves the cwd. An empty target or "..." goes to the root.
func (s *Store) ChangeDirectory(target string) (string, error) {
	if target == "" || target == "..." {
		target = "/"
	}
	abs := s.Resolve(target)

	if _, err := WalkDir(s.fs.Root, abs); err != nil {
		return "", kerrors.New(kerrors.PathNotFound, "%s: No such directory", abs)
	}

	if s.fs.CurrentDir != abs {
		s.fs.CurrentDir = abs
		s.dirty = true
	}
	return abs, nil
}

// List renders the children of a directory one per line, sorted by name.
func (s *Store) List(target string) (string, error) {
	abs := s.fs.CurrentDir
	if target != "" {
		abs = s.Resolve(target)
	}

	dir, err := WalkDir(s.fs.Root, abs)
	if err != nil {
		if kerrors.Is(err, kerrors.NotADirectory) {
			return "", err
		}
		return "", kerrors.New(kerrors.PathNotFound, "%s: No such directory", abs)
	}

	names := dir.Names()
	if len(names) == 0 {
		return EmptyDirectory, nil
	}

	lines := make([]string, 0, len(names))
	for _, name := range names {
		marker := fileMarker
		if dir.Children[name].IsDir() {
			marker = dirMarker
		}
		lines = append(lines, marker+name)
	}
	return strings.Join(lines, "\n"), nil
}

// Touch creates missing parents and replaces the leaf with an empty file,
// read-only system files included. Directories are left alone.
func (s *Store) Touch(target string) (string, error) {
	abs := s.Resolve(target)

	res, err := Lookup(s.fs.Root, abs, true)
	if err != nil {
		return "", err
	}
	if res.Parent == nil {
		return "", kerrors.New(kerrors.IsADirectory, "%s: Is a directory", abs)
	}
	s.dirty = true

	if res.Found && res.Node.IsDir() {
		return "", kerrors.New(kerrors.IsADirectory, "%s: Is a directory", abs)
	}

	res.Parent.SetChild(res.Name, models.NewFile(""))
	return abs, nil
}

// MakeDirectory creates a directory and its missing parents. An existing
// directory at the leaf is kept as is.
func (s *Store) MakeDirectory(target string) (string, error) {
	abs := s.Resolve(target)

	res, err := Lookup(s.fs.Root, abs, true)
	if err != nil {
		return "", err
	}
	s.dirty = true

	if res.Parent == nil {
		return abs, nil
	}
	if res.Found {
		if !res.Node.IsDir() {
			return "", kerrors.New(kerrors.FileExists, "Cannot create directory '%s': File exists", res.Name)
		}
		return abs, nil
	}

	res.Parent.SetChild(res.Name, models.NewDir())
	return abs, nil
}

// Remove deletes a file or a whole subtree.
func (s *Store) Remove(target string) (string, error) {
	abs := s.Resolve(target)

	res, err := Lookup(s.fs.Root, abs, false)
	if err != nil {
		return "", err
	}
	if res.Parent == nil {
		return "", kerrors.New(kerrors.PermissionDenied, "%s: Permission denied", abs)
	}
	if !res.Found {
		return "", kerrors.New(kerrors.PathNotFound, "%s: No such file or directory", abs)
	}

	delete(res.Parent.Children, res.Name)
	s.dirty = true

	if strings.HasPrefix(s.fs.CurrentDir+"/", abs+"/") {
		s.fs.CurrentDir = ParentDir(abs)
	}
	return abs, nil
}

// ReadFile returns a file's content, or EmptyFile for an empty one. Files that
// are both read-only and hidden cannot be read.
func (s *Store) ReadFile(target string) (string, error) {
	abs := s.Resolve(target)

	res, err := Lookup(s.fs.Root, abs, false)
	if err != nil {
		return "", err
	}
	if !res.Found {
		return "", kerrors.New(kerrors.PathNotFound, "%s: No such file", abs)
	}
	if res.Node.IsDir() {
		return "", kerrors.New(kerrors.IsADirectory, "%s: Is a directory", abs)
	}
	if res.Node.ReadOnly && res.Node.Hidden {
		return "", kerrors.New(kerrors.PermissionDenied, "%s: Permission denied", abs)
	}

	if res.Node.Content == "" {
		return EmptyFile, nil
	}
	return res.Node.Content, nil
}

// WriteFile stores content at target, creating missing parents. With appendTo
// set the content is added to the existing file. Nothing changes when the
// result would exceed the maximum content length.
func (s *Store) WriteFile(target, content string, appendTo bool) (string, error) {
	abs := s.Resolve(target)

	if err := s.checkLength(content); err != nil {
		return "", err
	}

	res, err := Lookup(s.fs.Root, abs, false)
	if err != nil && !kerrors.Is(err, kerrors.ParentNotFound) {
		return "", err
	}
	if err == nil {
		if res.Parent == nil || (res.Found && res.Node.IsDir()) {
			return "", kerrors.New(kerrors.IsADirectory, "%s: Is a directory", abs)
		}
		if res.Found && res.Node.ReadOnly {
			return "", kerrors.New(kerrors.PermissionDenied, "%s: Permission denied", abs)
		}
		if appendTo && res.Found {
			content = res.Node.Content + content
			if err := s.checkLength(content); err != nil {
				return "", err
			}
		}
	}

	res, err = Lookup(s.fs.Root, abs, true)
	if err != nil {
		return "", err
	}
	res.Parent.SetChild(res.Name, models.NewFile(content))
	s.dirty = true
	return abs, nil
}

// EditBuffer returns the content a file editor should start from, cut to the
// maximum content length. Missing files and directories give "".
func (s *Store) EditBuffer(target string) (string, string) {
	abs := s.Resolve(target)

	res, err := Lookup(s.fs.Root, abs, false)
	if err != nil || !res.Found || res.Node.IsDir() {
		return abs, ""
	}
	return abs, truncateRunes(res.Node.Content, s.maxContentLength)
}

// Stat returns the node at an absolute path, or nil.
func (s *Store) Stat(abs string) *models.Node {
	res, err := Lookup(s.fs.Root, abs, false)
	if err != nil || !res.Found {
		return nil
	}
	return res.Node
}

// PutFile writes a plain file at an absolute path, bypassing read-only and
// length checks. It is meant for records the system keeps for itself.
func (s *Store) PutFile(abs, content string) error {
	res, err := Lookup(s.fs.Root, abs, true)
	if err != nil {
		return err
	}
	if res.Parent == nil {
		return kerrors.New(kerrors.IsADirectory, "%s: Is a directory", abs)
	}
	res.Parent.SetChild(res.Name, models.NewFile(content))
	s.dirty = true
	return nil
}

// DeleteFile removes the entry at an absolute path and reports whether it
// existed.
func (s *Store) DeleteFile(abs string) bool {
	res, err := Lookup(s.fs.Root, abs, false)
	if err != nil || !res.Found || res.Parent == nil {
		return false
	}
	delete(res.Parent.Children, res.Name)
	s.dirty = true
	return true
}

// DirNames lists the children of a directory at an absolute path.
func (s *Store) DirNames(abs string) []string {
	dir, err := WalkDir(s.fs.Root, abs)
	if err != nil {
		return nil
	}
	return dir.Names()
}

// ReadSystem returns the raw content of a file at an absolute path, or
// fallback if the file is missing.
func (s *Store) ReadSystem(abs, fallback string) string {
	node := s.Stat(abs)
	if node == nil || node.IsDir() {
		return fallback
	}
	return node.Content
}

// Heal restores the /sys skeleton.
func (s *Store) Heal() {
	if Heal(s.fs) {
		s.dirty = true
	}
}

func (s *Store) checkLength(content string) error {
	if s.maxContentLength > 0 && utf8.RuneCountInString(content) > s.maxContentLength {
		return kerrors.New(kerrors.ContentTooLarge,
			"Error: File content exceeds the limit of %d characters.", s.maxContentLength)
	}
	return nil
}

func ParentDir(abs string) string {
	parts := Split(abs)
	if len(parts) == 0 {
		return "/"
	}
	return Join(parts[:len(parts)-1])
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}

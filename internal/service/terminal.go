package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/S1riyS/happyphone/server/internal/models"
	"github.com/S1riyS/happyphone/server/internal/network"
	"github.com/S1riyS/happyphone/server/internal/packages"
	"github.com/S1riyS/happyphone/server/internal/pkg/kerrors"
	"github.com/S1riyS/happyphone/server/internal/repository"
	"github.com/S1riyS/happyphone/server/internal/shell"
	"github.com/S1riyS/happyphone/server/internal/vfs"
	"github.com/S1riyS/happyphone/server/pkg/logging"
	"github.com/S1riyS/happyphone/server/pkg/logging/slogext"
)

const editPackage = "edit"

type Request struct {
	UserID      string
	DisplayName string
	Line        string
}

type EditRequest struct {
	UserID      string
	DisplayName string
	Path        string
	Content     string
}

type Response struct {
	// Output is the whole history block as shown on a terminal surface.
	Output          string   `json:"output"`
	Result          string   `json:"result"`
	History         []string `json:"history"`
	ActiveDownloads []string `json:"activeDownloads"`
}

type PollResult struct {
	Lines           []string `json:"lines"`
	ActiveDownloads []string `json:"activeDownloads"`
}

type EditBuffer struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

type Options struct {
	Hostname         string
	HistorySize      int
	MaxContentLength int
}

type TerminalService interface {
	Execute(ctx context.Context, req Request) (*Response, error)
	Poll(ctx context.Context, userID string) (*PollResult, error)
	ViewHistory(ctx context.Context, userID string) ([]string, error)
	ClearHistory(ctx context.Context, userID string) error
	EditFile(ctx context.Context, req EditRequest) (*Response, error)
	EditBuffer(ctx context.Context, userID, path string) (*EditBuffer, error)
}

type terminalService struct {
	tx          repository.Transactor
	fsRepo      repository.FilesystemRepository
	historyRepo repository.HistoryRepository
	network     network.ConfigService
	packages    *packages.Manager
	interpreter *shell.Interpreter
	opts        Options

	// Each user's requests run one at a time.
	locksMu sync.Mutex
	locks   map[string]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func NewTerminalService(
	tx repository.Transactor,
	fsRepo repository.FilesystemRepository,
	historyRepo repository.HistoryRepository,
	netConfigs network.ConfigService,
	pkgs *packages.Manager,
	opts Options,
) TerminalService {
	return &terminalService{
		tx:          tx,
		fsRepo:      fsRepo,
		historyRepo: historyRepo,
		network:     netConfigs,
		packages:    pkgs,
		interpreter: shell.NewInterpreter(),
		opts:        opts,
		locks:       make(map[string]*userLock),
	}
}

// lock serializes the user's requests. The entry is dropped when its last
// holder or waiter releases it.
func (s *terminalService) lock(userID string) func() {
	s.locksMu.Lock()
	l, ok := s.locks[userID]
	if !ok {
		l = &userLock{}
		s.locks[userID] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		s.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, userID)
		}
		s.locksMu.Unlock()
	}
}

func (s *terminalService) prompt(name, cwd, line string) string {
	return fmt.Sprintf("%s@%s:%s$ %s", name, s.opts.Hostname, cwd, line)
}

func (s *terminalService) Execute(ctx context.Context, req Request) (*Response, error) {
	const op = "service.terminalService.Execute"
	ctx = logging.MakeContextWithUserID(ctx, req.UserID)
	logger := logging.GetLoggerFromContextWithOp(ctx, op)

	line := strings.TrimSpace(req.Line)
	if line == "" {
		return nil, newServiceError(kerrors.MissingArgument, "Command line is empty")
	}
	defer s.lock(req.UserID)()

	saved := false
	defer func() { s.packages.Settle(req.UserID, saved) }()

	store, err := vfs.Open(ctx, s.fsRepo, req.UserID, s.opts.MaxContentLength)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	history, err := s.historyRepo.GetHistory(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// Downloads that finished since the last request report before the command.
	updates, err := s.packages.Poll(ctx, req.UserID, store)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var outputs []string
	for _, u := range updates {
		if u.Done {
			outputs = append(outputs, u.Message)
		}
	}

	cwd := store.CurrentDir()
	env := &shell.Env{
		UserID:      req.UserID,
		DisplayName: req.DisplayName,
		Store:       store,
		Packages:    s.packages,
		Network:     s.network,
	}
	res, err := s.interpreter.Run(ctx, env, line)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	outputs = append(outputs, res.Outputs...)
	result := strings.Join(outputs, "\n")

	history = models.AppendHistory(history, s.opts.HistorySize, s.prompt(req.DisplayName, cwd, res.Line))
	if result != "" {
		history = models.AppendHistory(history, s.opts.HistorySize, result)
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := store.Commit(ctx); err != nil {
			return err
		}
		return s.historyRepo.SaveHistory(ctx, req.UserID, history)
	})
	if err != nil {
		logger.Error("Failed to persist command", slogext.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	saved = true

	logger.Debug("Command executed",
		slog.String("line", res.Line),
		slog.Bool("halted", res.Halted),
		slog.Int("history", len(history)),
	)

	return &Response{
		Output:          strings.Join(history, "\n"),
		Result:          result,
		History:         history,
		ActiveDownloads: nonNil(s.packages.Active(req.UserID)),
	}, nil
}

func (s *terminalService) Poll(ctx context.Context, userID string) (*PollResult, error) {
	const op = "service.terminalService.Poll"
	ctx = logging.MakeContextWithUserID(ctx, userID)
	logger := logging.GetLoggerFromContextWithOp(ctx, op)

	defer s.lock(userID)()

	if len(s.packages.Active(userID)) == 0 {
		return &PollResult{Lines: []string{}, ActiveDownloads: []string{}}, nil
	}

	saved := false
	defer func() { s.packages.Settle(userID, saved) }()

	store, err := vfs.Open(ctx, s.fsRepo, userID, s.opts.MaxContentLength)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	updates, err := s.packages.Poll(ctx, userID, store)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lines := make([]string, 0, len(updates))
	var finished []string
	for _, u := range updates {
		lines = append(lines, u.Message)
		if u.Done {
			finished = append(finished, u.Message)
		}
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := store.Commit(ctx); err != nil {
			return err
		}
		if len(finished) == 0 {
			return nil
		}
		history, err := s.historyRepo.GetHistory(ctx, userID)
		if err != nil {
			return err
		}
		history = models.AppendHistory(history, s.opts.HistorySize, finished...)
		return s.historyRepo.SaveHistory(ctx, userID, history)
	})
	if err != nil {
		logger.Error("Failed to persist downloads", slogext.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	saved = true

	active := nonNil(s.packages.Active(userID))
	logger.Debug("Downloads polled", slog.Int("finished", len(finished)), slog.Int("active", len(active)))

	return &PollResult{Lines: lines, ActiveDownloads: active}, nil
}

func (s *terminalService) ViewHistory(ctx context.Context, userID string) ([]string, error) {
	const op = "service.terminalService.ViewHistory"
	ctx = logging.MakeContextWithUserID(ctx, userID)

	history, err := s.historyRepo.GetHistory(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return history, nil
}

func (s *terminalService) ClearHistory(ctx context.Context, userID string) error {
	const op = "service.terminalService.ClearHistory"
	ctx = logging.MakeContextWithUserID(ctx, userID)

	defer s.lock(userID)()

	if err := s.historyRepo.SaveHistory(ctx, userID, []string{}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	logging.GetLoggerFromContextWithOp(ctx, op).Debug("History cleared")
	return nil
}

func (s *terminalService) EditFile(ctx context.Context, req EditRequest) (*Response, error) {
	const op = "service.terminalService.EditFile"
	ctx = logging.MakeContextWithUserID(ctx, req.UserID)
	logger := logging.GetLoggerFromContextWithOp(ctx, op)

	defer s.lock(req.UserID)()

	store, err := vfs.Open(ctx, s.fsRepo, req.UserID, s.opts.MaxContentLength)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.checkEditor(store); err != nil {
		return nil, err
	}

	target := strings.TrimSpace(req.Path)
	if target == "" {
		return nil, newServiceError(kerrors.MissingArgument, "Error: Filename is required.")
	}
	abs := store.Resolve(target)
	if node := store.Stat(abs); node != nil {
		if node.IsDir() {
			return nil, newServiceError(kerrors.IsADirectory, "Error: %s: Is a directory", abs)
		}
		if node.ReadOnly {
			return nil, newServiceError(kerrors.PermissionDenied, "Error: This file is read-only and cannot be edited.")
		}
	}

	cwd := store.CurrentDir()
	if _, err := store.WriteFile(target, req.Content, false); err != nil {
		var derr *kerrors.Error
		if errors.As(err, &derr) {
			if derr.Kind == kerrors.ContentTooLarge {
				return nil, newServiceError(derr.Kind, "%s", derr.Message)
			}
			return nil, newServiceError(derr.Kind, "Error: %s", derr.Message)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	history, err := s.historyRepo.GetHistory(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	history = models.AppendHistory(history, s.opts.HistorySize,
		s.prompt(req.DisplayName, cwd, "edit-file "+target),
		"Updated file: "+abs,
	)

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := store.Commit(ctx); err != nil {
			return err
		}
		return s.historyRepo.SaveHistory(ctx, req.UserID, history)
	})
	if err != nil {
		logger.Error("Failed to persist edit", slogext.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	logger.Debug("File edited", slog.String("path", abs), slog.Int("length", len(req.Content)))

	return &Response{
		Output:          strings.Join(history, "\n"),
		Result:          "Updated file: " + abs,
		History:         history,
		ActiveDownloads: nonNil(s.packages.Active(req.UserID)),
	}, nil
}

func (s *terminalService) EditBuffer(ctx context.Context, userID, path string) (*EditBuffer, error) {
	const op = "service.terminalService.EditBuffer"
	ctx = logging.MakeContextWithUserID(ctx, userID)

	store, err := vfs.Open(ctx, s.fsRepo, userID, s.opts.MaxContentLength)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.checkEditor(store); err != nil {
		return nil, err
	}

	target := strings.TrimSpace(path)
	if target == "" {
		return nil, newServiceError(kerrors.MissingArgument, "Error: Filename is required.")
	}
	abs, content := store.EditBuffer(target)
	return &EditBuffer{Path: abs, Content: content}, nil
}

func (s *terminalService) checkEditor(store *vfs.Store) error {
	if packages.IsInstalled(store, editPackage) {
		return nil
	}
	return newServiceError(kerrors.PackageNotInstalled,
		"Error: The \"%s\" package is not installed. Please install it via pkg install %s.", editPackage, editPackage)
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

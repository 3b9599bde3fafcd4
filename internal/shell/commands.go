package shell

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/S1riyS/happyphone/server/internal/network"
	"github.com/S1riyS/happyphone/server/internal/packages"
	"github.com/S1riyS/happyphone/server/internal/pkg/kerrors"
	"github.com/S1riyS/happyphone/server/internal/vfs"
)

// Env is what a command may touch while it runs.
type Env struct {
	UserID      string
	DisplayName string
	Store       *vfs.Store
	Packages    *packages.Manager
	Network     network.ConfigService
}

// Command is one verb. A *kerrors.Error result is shown to the user; any other
// error aborts the whole line.
type Command interface {
	Run(ctx context.Context, env *Env, args []string) (string, error)
}

// Builtins are always available.
func Builtins() map[string]Command {
	return map[string]Command{
		"cd":    cmdCd{},
		"ls":    cmdLs{},
		"touch": cmdTouch{},
		"mkdir": cmdMkdir{},
		"rm":    cmdRm{},
		"cat":   cmdCat{},
		"test":  cmdTest{},
		"pkg":   cmdPkg{},
		"net":   cmdNet{},
	}
}

// Installables are unlocked by installing the package of the same name.
func Installables() map[string]Command {
	return map[string]Command{
		"echo":         cmdEcho{},
		"edit":         cmdEdit{},
		"edit-file":    cmdEdit{},
		"happyphone":   cmdText("Make it happy RN"),
		"happybrowser": cmdText("Make your browser happy. It needs to become happy."),
	}
}

func prefixed(prefix string, err error) error {
	var e *kerrors.Error
	if errors.As(err, &e) {
		return e.WithPrefix(prefix)
	}
	return err
}

type cmdCd struct{}

func (cmdCd) Run(_ context.Context, env *Env, args []string) (string, error) {
	target := ""
	if len(args) > 0 {
		target = args[0]
	}
	abs, err := env.Store.ChangeDirectory(target)
	if err != nil {
		return "", prefixed("cd", err)
	}
	return abs, nil
}

type cmdLs struct{}

func (cmdLs) Run(_ context.Context, env *Env, args []string) (string, error) {
	target := ""
	if len(args) > 0 {
		target = args[0]
	}
	out, err := env.Store.List(target)
	if err != nil {
		return "", prefixed("ls", err)
	}
	return out, nil
}

type cmdTouch struct{}

func (cmdTouch) Run(_ context.Context, env *Env, args []string) (string, error) {
	if len(args) == 0 {
		return "", kerrors.New(kerrors.MissingArgument, "touch: Missing filename")
	}
	abs, err := env.Store.Touch(strings.Join(args, " "))
	if err != nil {
		return "", prefixed("touch", err)
	}
	return "Created file: " + abs, nil
}

type cmdMkdir struct{}

func (cmdMkdir) Run(_ context.Context, env *Env, args []string) (string, error) {
	if len(args) == 0 {
		return "", kerrors.New(kerrors.MissingArgument, "mkdir: Missing directory name")
	}
	abs, err := env.Store.MakeDirectory(strings.Join(args, " "))
	if err != nil {
		return "", prefixed("mkdir", err)
	}
	return "Created directory: " + abs, nil
}

type cmdRm struct{}

func (cmdRm) Run(_ context.Context, env *Env, args []string) (string, error) {
	if len(args) == 0 {
		return "", kerrors.New(kerrors.MissingArgument, "rm: Missing filename")
	}
	abs, err := env.Store.Remove(strings.Join(args, " "))
	if err != nil {
		return "", prefixed("rm", err)
	}
	return "Removed: " + abs, nil
}

type cmdCat struct{}

func (cmdCat) Run(_ context.Context, env *Env, args []string) (string, error) {
	if len(args) == 0 {
		return "", kerrors.New(kerrors.MissingArgument, "cat: Missing filename")
	}
	out, err := env.Store.ReadFile(strings.Join(args, " "))
	if err != nil {
		return "", prefixed("cat", err)
	}
	return out, nil
}

type cmdTest struct{}

func (cmdTest) Run(_ context.Context, _ *Env, args []string) (string, error) {
	return "Test command executed with args: " + strings.Join(args, " "), nil
}

// cmdEcho prints its arguments or, with "> file" or ">> file", writes them to
// a file. ">" replaces the file and ">>" appends to it.
type cmdEcho struct{}

func (cmdEcho) Run(_ context.Context, env *Env, args []string) (string, error) {
	split, appendTo := -1, false
	for i, arg := range args {
		if arg == ">" || arg == ">>" {
			split, appendTo = i, arg == ">>"
			break
		}
	}

	if split == -1 {
		content := strings.Join(args, " ")
		if limit := env.Store.MaxContentLength(); limit > 0 && len([]rune(content)) > limit {
			return "", kerrors.New(kerrors.ContentTooLarge,
				"Error: File content exceeds the limit of %d characters.", limit)
		}
		return content, nil
	}

	target := strings.Join(args[split+1:], " ")
	if target == "" {
		return "", kerrors.New(kerrors.MissingArgument, "echo: Missing filename")
	}

	abs, err := env.Store.WriteFile(target, strings.Join(args[:split], " "), appendTo)
	if err != nil {
		if kerrors.Is(err, kerrors.ContentTooLarge) {
			return "", err
		}
		return "", prefixed("echo", err)
	}
	return "Written to " + abs, nil
}

type cmdEdit struct{}

func (cmdEdit) Run(context.Context, *Env, []string) (string, error) {
	return `edit: Use the "edit-file" action (with the arg0 field specifying the filename) to use the edit command!`, nil
}

// cmdText prints a fixed message.
type cmdText string

func (c cmdText) Run(context.Context, *Env, []string) (string, error) {
	return string(c), nil
}

// commandError explains why name cannot run on the user's release.
func commandError(env *Env, name string) error {
	catalog := env.Packages.Catalog()
	release := packages.Release(env.Store)

	if _, ok := catalog.Lookup(name); !ok {
		return kerrors.New(kerrors.CommandNotFound, "Command not found: %s", name)
	}
	if catalog.IsAvailable(name, release.Version, release.Branch) {
		return kerrors.New(kerrors.PackageNotInstalled,
			"Command '%s' is available but not installed. Run 'pkg install %s' first.", name, name)
	}
	if minVersion, ok := catalog.MinVersion(name, release.Branch); ok {
		return kerrors.New(kerrors.VersionTooLow,
			"Command '%s' requires %s version %s or later.", name, release.Branch, minVersion)
	}
	return kerrors.New(kerrors.BranchUnsupported,
		"Command '%s' is not available on the %s branch.", name, release.Branch)
}

func usage(format string, args ...any) error {
	return kerrors.New(kerrors.MissingArgument, "%s", fmt.Sprintf(format, args...))
}

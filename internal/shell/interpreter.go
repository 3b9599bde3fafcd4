// Package shell interprets terminal command lines against a user's tree.
package shell

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/S1riyS/happyphone/server/internal/metrics"
	"github.com/S1riyS/happyphone/server/internal/packages"
	"github.com/S1riyS/happyphone/server/internal/pkg/kerrors"
	"github.com/S1riyS/happyphone/server/internal/vfs"
	"github.com/S1riyS/happyphone/server/pkg/logging"
	"github.com/S1riyS/happyphone/server/pkg/logging/slogext"
)

// haltKinds stop a chain at the failing sub-command.
var haltKinds = map[kerrors.Kind]bool{
	kerrors.CommandNotFound:     true,
	kerrors.PackageNotInstalled: true,
	kerrors.UnknownBranch:       true,
	kerrors.PathNotFound:        true,
}

// Result is the outcome of one command line.
type Result struct {
	// Line is the input after variable substitution.
	Line    string
	Outputs []string
	Halted  bool
}

// Output joins the outputs of every sub-command that ran.
func (r Result) Output() string {
	return strings.Join(r.Outputs, "\n")
}

type Interpreter struct {
	builtins     map[string]Command
	installables map[string]Command
}

func NewInterpreter() *Interpreter {
	return &Interpreter{
		builtins:     Builtins(),
		installables: Installables(),
	}
}

// Substitute applies the variables defined in /sys/os/.def-vars to line.
func (i *Interpreter) Substitute(store *vfs.Store, line string) string {
	node := store.Stat(vfs.DefVarsPath)
	if node == nil || node.IsDir() {
		return line
	}
	return Substitute(line, ParseVariables(node.Content))
}

// Run executes every "&&"-separated part of line in order, stopping after the
// first part that fails with a halting error. The tree is committed after each
// part that changed it.
func (i *Interpreter) Run(ctx context.Context, env *Env, line string) (Result, error) {
	const op = "shell.Interpreter.Run"
	logger := logging.GetLoggerFromContextWithOp(ctx, op)

	res := Result{Line: i.Substitute(env.Store, strings.TrimSpace(line))}

	for _, part := range SplitChain(res.Line) {
		out, err := i.dispatch(ctx, env, part)

		var derr *kerrors.Error
		switch {
		case err == nil:
		case errors.As(err, &derr):
			out = derr.Message
		default:
			logger.Error("Command failed", slog.String("command", part), slogext.Err(err))
			return res, fmt.Errorf("%s: %w", op, err)
		}

		if cerr := env.Store.Commit(ctx); cerr != nil {
			return res, fmt.Errorf("%s: %w", op, cerr)
		}

		if out != "" {
			res.Outputs = append(res.Outputs, out)
		}
		if derr != nil && haltKinds[derr.Kind] {
			logger.Debug("Chain halted", slog.String("command", part), slog.String("kind", derr.Kind.String()))
			metrics.RecordChainHalted()
			res.Halted = true
			break
		}
	}

	return res, nil
}

func (i *Interpreter) dispatch(ctx context.Context, env *Env, part string) (string, error) {
	tokens := Tokenize(part)
	if len(tokens) == 0 {
		return "", nil
	}
	name, args := strings.ToLower(tokens[0]), tokens[1:]

	cmd, label := i.lookup(env, name)
	if cmd == nil {
		metrics.RecordCommand(label, false)
		return "", commandError(env, name)
	}

	out, err := cmd.Run(ctx, env, args)
	metrics.RecordCommand(label, err == nil)
	return out, err
}

// lookup finds the command for name. label is name for known commands and
// "unknown" otherwise.
func (i *Interpreter) lookup(env *Env, name string) (Command, string) {
	if cmd, ok := i.builtins[name]; ok {
		return cmd, name
	}
	if cmd, ok := i.installables[name]; ok {
		if packages.IsInstalled(env.Store, name) {
			return cmd, name
		}
		return nil, name
	}
	return nil, "unknown"
}

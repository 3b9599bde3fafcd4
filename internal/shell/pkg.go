package shell

import (
	"context"
	"strconv"
	"strings"

	"github.com/S1riyS/happyphone/server/internal/pkg/kerrors"
)

const pkgVerbs = `"install", "remove", "list", "search", "branches", or "upgrade"`

type cmdPkg struct{}

func (cmdPkg) Run(ctx context.Context, env *Env, args []string) (string, error) {
	if len(args) == 0 {
		return "", kerrors.New(kerrors.MissingArgument, "pkg: Missing subcommand. Use %s.", pkgVerbs)
	}

	pm := env.Packages
	rest := args[1:]

	var (
		out string
		err error
	)
	switch strings.ToLower(args[0]) {
	case "install":
		if len(rest) == 0 {
			return "", usage("Usage: pkg install <package>")
		}
		out, err = pm.Install(ctx, env.UserID, env.Store, rest[0])
	case "remove":
		if len(rest) == 0 {
			return "", usage("Usage: pkg remove <package>")
		}
		out, err = pm.Remove(ctx, env.UserID, env.Store, rest[0])
	case "list":
		out, err = pm.List(env.Store, pageArg(rest))
	case "search":
		out, err = pm.Search(env.Store, queryArg(rest), pageArg(rest))
	case "branches":
		out = pm.Branches(env.Store)
	case "upgrade":
		out, err = pm.Upgrade(ctx, env.Store, branchArg(rest))
	case "status":
		out, err = pkgStatus(ctx, env)
	default:
		return "", kerrors.New(kerrors.InvalidArgument, "pkg: Invalid subcommand. Use %s.", pkgVerbs)
	}

	if err != nil {
		return "", prefixed("pkg", err)
	}
	return out, nil
}

// pkgStatus ticks the user's downloads and shows where each one is.
func pkgStatus(ctx context.Context, env *Env) (string, error) {
	updates, err := env.Packages.Poll(ctx, env.UserID, env.Store)
	if err != nil {
		return "", err
	}
	if len(updates) == 0 {
		return "No active downloads.", nil
	}

	lines := make([]string, 0, len(updates))
	for _, u := range updates {
		lines = append(lines, u.Message)
	}
	return strings.Join(lines, "\n"), nil
}

// pageArg reads "--page N". A missing or unparsable number means page 1.
func pageArg(args []string) int {
	for i, arg := range args {
		if arg != "--page" || i+1 >= len(args) {
			continue
		}
		n, err := strconv.Atoi(args[i+1])
		if err != nil || n == 0 {
			return 1
		}
		return n
	}
	return 1
}

// queryArg returns the first argument that is not a flag or a flag's value.
func queryArg(args []string) string {
	for i := 0; i < len(args); i++ {
		if args[i] == "--page" {
			i++
			continue
		}
		return args[i]
	}
	return ""
}

// branchArg returns the name of the first "--<branch>" flag.
func branchArg(args []string) string {
	for _, arg := range args {
		if name, ok := strings.CutPrefix(arg, "--"); ok {
			return name
		}
	}
	return ""
}

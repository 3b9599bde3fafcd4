package shell

import (
	"regexp"
	"strings"
)

var (
	tokenPattern = regexp.MustCompile(`"[^"]*"|'[^']*'|\S+`)
	chainPattern = regexp.MustCompile(`\s*&&\s*`)
)

// Tokenize splits a command line on whitespace, keeping quoted spans together
// and dropping the quote characters around each token.
func Tokenize(line string) []string {
	raw := tokenPattern.FindAllString(line, -1)
	tokens := make([]string, 0, len(raw))
	for _, tok := range raw {
		tokens = append(tokens, unquote(tok))
	}
	return tokens
}

func unquote(tok string) string {
	if len(tok) > 0 && (tok[0] == '"' || tok[0] == '\'') {
		tok = tok[1:]
	}
	if n := len(tok); n > 0 && (tok[n-1] == '"' || tok[n-1] == '\'') {
		tok = tok[:n-1]
	}
	return tok
}

// SplitChain splits a line on "&&" and drops empty parts.
func SplitChain(line string) []string {
	var parts []string
	for _, part := range chainPattern.Split(line, -1) {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

type Variable struct {
	pattern *regexp.Regexp
	value   string
}

// ParseVariables reads "$NAME=VALUE" lines. Other lines are ignored and a
// later definition of the same name wins.
func ParseVariables(content string) []Variable {
	var vars []Variable
	index := make(map[string]int)

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "$") {
			continue
		}
		name, value, ok := strings.Cut(line, "=")
		name = strings.TrimSpace(name)
		if !ok || len(name) < 2 {
			continue
		}

		v := Variable{
			pattern: regexp.MustCompile(regexp.QuoteMeta(name) + `\b`),
			value:   strings.TrimSpace(value),
		}
		if i, seen := index[name]; seen {
			vars[i] = v
			continue
		}
		index[name] = len(vars)
		vars = append(vars, v)
	}
	return vars
}

// Substitute replaces whole-word occurrences of each variable.
func Substitute(line string, vars []Variable) string {
	for _, v := range vars {
		line = v.pattern.ReplaceAllLiteralString(line, v.value)
	}
	return line
}

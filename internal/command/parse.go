package command

import "strings"

// DefaultPrefix marks a chat line as a command.
const DefaultPrefix = "!"

// Parsed is one command line split into its parts.
type Parsed struct {
	Name    string
	Arg     string
	Private bool
}

// ParseLine splits a line such as "!done read" or "?!left" into a command
// name and argument. A leading '?' asks for a private reply. Lines without
// the prefix are not commands.
func ParseLine(prefix, line string) (Parsed, bool) {
	var p Parsed
	line = strings.TrimSpace(line)
	if rest, ok := strings.CutPrefix(line, "?"); ok {
		p.Private = true
		line = strings.TrimSpace(rest)
	}
	rest, ok := strings.CutPrefix(line, prefix)
	if !ok || rest == "" {
		return Parsed{}, false
	}
	name, arg, _ := strings.Cut(strings.TrimSpace(rest), " ")
	p.Name = strings.ToLower(name)
	p.Arg = strings.TrimSpace(arg)
	return p, p.Name != ""
}

package shell

import "strings"

// LineKind is the classification of one startup-file line.
type LineKind int

const (
	// Keep lines are written back unchanged.
	Keep LineKind = iota
	// Drop lines were added by the runtime's own installer and are removed.
	Drop
	// Managed lines belong to an existing bvm PATH block.
	Managed
)

func (k LineKind) String() string {
	switch k {
	case Drop:
		return "drop"
	case Managed:
		return "managed"
	default:
		return "keep"
	}
}

// rule matches a line against one installer-added pattern.
type rule struct {
	name  string
	match func(line string) bool
}

func contains(sub string) func(string) bool {
	return func(line string) bool { return strings.Contains(line, sub) }
}

func equalsTrimmed(s string) func(string) bool {
	return func(line string) bool { return strings.TrimSpace(line) == s }
}

// installerRules lists the lines the Bun installer appends to startup files.
// They point PATH at a single global install and would shadow the active
// version, so they are always removed.
var installerRules = []rule{
	{"posix install root", contains(`export BUN_INSTALL="$HOME/.bun"`)},
	{"posix path prepend", contains(`export PATH=$BUN_INSTALL/bin:$PATH`)},
	{"fish install root", contains(`set --export BUN_INSTALL "$HOME/.bun"`)},
	{"fish path prepend", contains(`set --export PATH $BUN_INSTALL/bin $PATH`)},
	{"marker comment", equalsTrimmed("# bun")},
}

// Classify decides what Rewrite does with line for family f.
//
// Managed detection is a substring test: a line mentioning both the pointer
// file and the family's PATH idiom counts as an existing block. A hand-edited
// line that happens to contain both is treated the same way.
func (p *Patcher) Classify(f Family, line string) LineKind {
	for _, r := range installerRules {
		if r.match(line) {
			return Drop
		}
	}
	if strings.Contains(line, f.pathIdiom()) &&
		(strings.Contains(line, p.pointerToken()) || strings.Contains(line, p.pointerFile)) {
		return Managed
	}
	return Keep
}

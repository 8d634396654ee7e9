// Package shell patches shell startup files so that PATH follows the active
// runtime version.
package shell

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/blackwell-systems/bvm/internal/fsutil"
)

// Family identifies a supported shell.
type Family string

const (
	Unknown Family = "unknown"
	Bash    Family = "bash"
	Zsh     Family = "zsh"
	Fish    Family = "fish"
)

// DetectFamily maps a $SHELL value such as /usr/bin/zsh to a Family.
func DetectFamily(shellPath string) Family {
	switch filepath.Base(strings.TrimSpace(shellPath)) {
	case "bash":
		return Bash
	case "zsh":
		return Zsh
	case "fish":
		return Fish
	default:
		return Unknown
	}
}

// pathIdiom is the PATH-mutating statement a family uses.
func (f Family) pathIdiom() string {
	if f == Fish {
		return "set -x PATH"
	}
	return "export PATH"
}

// Result describes what Patch did to a startup file.
type Result struct {
	Family     Family
	File       string
	Skipped    bool // unknown family or file absent
	Changed    bool // file content was rewritten
	Removed    int  // installer lines dropped
	BlockAdded bool
}

// Patcher rewrites startup files for one pointer file.
type Patcher struct {
	home        string
	pointerFile string
	binSubpath  string
}

// NewPatcher returns a Patcher whose PATH block reads pointerFile and appends
// binSubpath (for example ".bun/bin") to the path it contains.
func NewPatcher(home, pointerFile, binSubpath string) *Patcher {
	return &Patcher{
		home:        home,
		pointerFile: pointerFile,
		binSubpath:  strings.Trim(filepath.ToSlash(binSubpath), "/"),
	}
}

// ConfigFile returns the startup file for f. ok is false for Unknown.
func (p *Patcher) ConfigFile(f Family) (path string, ok bool) {
	switch f {
	case Bash:
		return filepath.Join(p.home, ".bashrc"), true
	case Zsh:
		return filepath.Join(p.home, ".zshrc"), true
	case Fish:
		return filepath.Join(p.home, ".config", "fish", "config.fish"), true
	default:
		return "", false
	}
}

// pointerToken is the pointer path as written into startup files, with the
// home prefix replaced by $HOME so the block survives home relocation.
func (p *Patcher) pointerToken() string {
	if p.home != "" {
		if rel, err := filepath.Rel(p.home, p.pointerFile); err == nil && !strings.HasPrefix(rel, "..") {
			return "$HOME/" + filepath.ToSlash(rel)
		}
	}
	return filepath.ToSlash(p.pointerFile)
}

// Block renders the guarded PATH block for f, newline terminated.
func (p *Patcher) Block(f Family) string {
	ptr := p.pointerToken()
	if f == Fish {
		return fmt.Sprintf("if test -f \"%s\"\n    set -x PATH (cat \"%s\")/%s $PATH\nend\n",
			ptr, ptr, p.binSubpath)
	}
	return fmt.Sprintf("if [ -f \"%s\" ]; then\n    export PATH=\"$(cat \"%s\")/%s:$PATH\"\nfi\n",
		ptr, ptr, p.binSubpath)
}

// Patch rewrites f's startup file: installer-added PATH lines are removed and
// the guarded block is appended unless one is already present. A missing file
// is left alone. The file is replaced atomically and only when its content
// actually changes, so repeated runs leave it byte-identical.
func (p *Patcher) Patch(f Family) (Result, error) {
	return p.apply(f, true)
}

// Inspect reports what Patch would do without touching the file. Changed is
// set when a Patch would rewrite it.
func (p *Patcher) Inspect(f Family) (Result, error) {
	return p.apply(f, false)
}

func (p *Patcher) apply(f Family, write bool) (Result, error) {
	res := Result{Family: f}

	path, ok := p.ConfigFile(f)
	if !ok {
		res.Skipped = true
		return res, nil
	}
	res.File = path

	// Write through symlinks so dotfile-managed rc files stay links.
	target, err := filepath.EvalSymlinks(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			res.Skipped = true
			return res, nil
		}
		return res, fmt.Errorf("cannot resolve config file %s: %w", path, err)
	}

	info, err := os.Stat(target)
	if err != nil {
		return res, fmt.Errorf("cannot stat config file %s: %w", target, err)
	}
	original, err := os.ReadFile(target)
	if err != nil {
		return res, fmt.Errorf("cannot read config file %s: %w", target, err)
	}

	patched, removed, added := p.Rewrite(f, string(original))
	res.Removed = removed
	res.BlockAdded = added
	if patched == string(original) {
		return res, nil
	}
	if !write {
		res.Changed = true
		return res, nil
	}

	if err := fsutil.WriteFileAtomic(target, []byte(patched), info.Mode().Perm()); err != nil {
		return res, fmt.Errorf("cannot write config file %s: %w", target, err)
	}
	res.Changed = true
	return res, nil
}

// Rewrite is the pure transformation behind Patch. It returns the new content,
// the number of dropped installer lines, and whether the block was appended.
func (p *Patcher) Rewrite(f Family, content string) (out string, removed int, added bool) {
	var sb strings.Builder
	managed := false

	for _, line := range splitLines(content) {
		switch p.Classify(f, strings.TrimRight(line, "\r\n")) {
		case Drop:
			removed++
			continue
		case Managed:
			managed = true
		}
		sb.WriteString(line)
	}

	if !managed {
		if sb.Len() > 0 && !strings.HasSuffix(sb.String(), "\n") {
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
		sb.WriteString(p.Block(f))
		added = true
	}
	return sb.String(), removed, added
}

// splitLines splits content into lines that keep their terminators, so
// rendering the kept lines back reproduces the input byte for byte.
func splitLines(content string) []string {
	lines := strings.SplitAfter(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

package shell

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// newTestPatcher returns a Patcher whose home and pointer live in a temp dir.
func newTestPatcher(t *testing.T) (*Patcher, string) {
	t.Helper()
	home := t.TempDir()
	pointer := filepath.Join(home, "bvm", "current_version")
	return NewPatcher(home, pointer, ".bun/bin"), home
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}

func TestDetectFamily(t *testing.T) {
	tests := []struct {
		shell string
		want  Family
	}{
		{"/bin/bash", Bash},
		{"/usr/bin/zsh", Zsh},
		{"/usr/local/bin/fish", Fish},
		{"/bin/sh", Unknown},
		{"", Unknown},
	}
	for _, tt := range tests {
		if got := DetectFamily(tt.shell); got != tt.want {
			t.Errorf("DetectFamily(%q) = %q, want %q", tt.shell, got, tt.want)
		}
	}
}

// TestPatch_RemovesInstallerLinesAndAddsOneBlock verifies that a startup file
// holding the installer's PATH lines and one unrelated line ends up with the
// unrelated line plus exactly one guarded block.
func TestPatch_RemovesInstallerLinesAndAddsOneBlock(t *testing.T) {
	p, home := newTestPatcher(t)
	rc := filepath.Join(home, ".bashrc")
	writeFile(t, rc, "alias ll='ls -l'\n# bun\nexport BUN_INSTALL=\"$HOME/.bun\"\nexport PATH=$BUN_INSTALL/bin:$PATH\n")

	res, err := p.Patch(Bash)
	if err != nil {
		t.Fatalf("Patch() error = %v", err)
	}
	if !res.Changed || !res.BlockAdded {
		t.Errorf("expected Changed and BlockAdded, got %+v", res)
	}
	if res.Removed != 3 {
		t.Errorf("Removed = %d, want 3", res.Removed)
	}

	content := readFile(t, rc)
	if strings.Contains(content, "BUN_INSTALL") || strings.Contains(content, "# bun\n") {
		t.Errorf("installer lines survived:\n%s", content)
	}

	var nonBlank []string
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) != "" {
			nonBlank = append(nonBlank, line)
		}
	}
	want := []string{
		"alias ll='ls -l'",
		`if [ -f "$HOME/bvm/current_version" ]; then`,
		`    export PATH="$(cat "$HOME/bvm/current_version")/.bun/bin:$PATH"`,
		"fi",
	}
	if strings.Join(nonBlank, "\n") != strings.Join(want, "\n") {
		t.Errorf("patched content mismatch\ngot:\n%s\nwant:\n%s", strings.Join(nonBlank, "\n"), strings.Join(want, "\n"))
	}
}

// TestPatch_Idempotent verifies that a second run leaves the file
// byte-identical to the first run's output.
func TestPatch_Idempotent(t *testing.T) {
	for _, fam := range []Family{Bash, Zsh, Fish} {
		t.Run(string(fam), func(t *testing.T) {
			p, _ := newTestPatcher(t)
			rc, _ := p.ConfigFile(fam)
			writeFile(t, rc, "# bun\nexport PATH=$BUN_INSTALL/bin:$PATH\nset -g fish_greeting\n")

			if _, err := p.Patch(fam); err != nil {
				t.Fatalf("first Patch() error = %v", err)
			}
			first := readFile(t, rc)

			res, err := p.Patch(fam)
			if err != nil {
				t.Fatalf("second Patch() error = %v", err)
			}
			if res.Changed || res.BlockAdded || res.Removed != 0 {
				t.Errorf("second run reported changes: %+v", res)
			}
			if second := readFile(t, rc); second != first {
				t.Errorf("second run changed the file\nfirst:\n%s\nsecond:\n%s", first, second)
			}
			if n := strings.Count(first, p.Block(fam)); n != 1 {
				t.Errorf("block appears %d times, want 1", n)
			}
		})
	}
}

func TestPatch_MissingFileIsSkipped(t *testing.T) {
	p, home := newTestPatcher(t)

	res, err := p.Patch(Zsh)
	if err != nil {
		t.Fatalf("Patch() error = %v", err)
	}
	if !res.Skipped {
		t.Errorf("expected Skipped, got %+v", res)
	}
	if _, err := os.Stat(filepath.Join(home, ".zshrc")); !os.IsNotExist(err) {
		t.Errorf("startup file was created")
	}
}

func TestPatch_UnknownFamilyIsNoop(t *testing.T) {
	p, _ := newTestPatcher(t)

	res, err := p.Patch(Unknown)
	if err != nil {
		t.Fatalf("Patch() error = %v", err)
	}
	if !res.Skipped || res.Changed {
		t.Errorf("expected skipped no-op, got %+v", res)
	}
}

// TestPatch_FishUsesSetX verifies that fish gets set -x syntax and no
// export statements.
func TestPatch_FishUsesSetX(t *testing.T) {
	p, home := newTestPatcher(t)
	rc := filepath.Join(home, ".config", "fish", "config.fish")
	writeFile(t, rc, "set --export BUN_INSTALL \"$HOME/.bun\"\nset --export PATH $BUN_INSTALL/bin $PATH\n")

	if _, err := p.Patch(Fish); err != nil {
		t.Fatalf("Patch() error = %v", err)
	}

	content := readFile(t, rc)
	if strings.Contains(content, "export PATH") {
		t.Errorf("fish config should not contain 'export PATH'; got:\n%s", content)
	}
	if !strings.Contains(content, `set -x PATH (cat "$HOME/bvm/current_version")/.bun/bin $PATH`) {
		t.Errorf("expected set -x PATH line; got:\n%s", content)
	}
	if strings.Contains(content, "BUN_INSTALL") {
		t.Errorf("fish installer lines survived:\n%s", content)
	}
}

// TestPatch_RecognisesLegacyBlock verifies that a block written by older
// releases (unquoted cat argument) counts as already present.
func TestPatch_RecognisesLegacyBlock(t *testing.T) {
	p, home := newTestPatcher(t)
	rc := filepath.Join(home, ".bashrc")
	legacy := "\nif [ -f \"$HOME/bvm/current_version\" ]; then\n    export PATH=\"$(cat $HOME/bvm/current_version)/.bun/bin:$PATH\"\nfi\n"
	writeFile(t, rc, legacy)

	res, err := p.Patch(Bash)
	if err != nil {
		t.Fatalf("Patch() error = %v", err)
	}
	if res.Changed || res.BlockAdded {
		t.Errorf("legacy block not recognised: %+v", res)
	}
	if readFile(t, rc) != legacy {
		t.Errorf("legacy file was modified")
	}
}

func TestPatch_PreservesModeAndMissingTrailingNewline(t *testing.T) {
	p, home := newTestPatcher(t)
	rc := filepath.Join(home, ".zshrc")
	writeFile(t, rc, "setopt autocd")
	if err := os.Chmod(rc, 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := p.Patch(Zsh); err != nil {
		t.Fatalf("Patch() error = %v", err)
	}

	content := readFile(t, rc)
	if !strings.HasPrefix(content, "setopt autocd\n\nif [ -f") {
		t.Errorf("unexpected content:\n%s", content)
	}
	info, err := os.Stat(rc)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestPatch_WritesThroughSymlink(t *testing.T) {
	p, home := newTestPatcher(t)
	real := filepath.Join(home, "dotfiles", "bashrc")
	writeFile(t, real, "export EDITOR=vim\n")
	link := filepath.Join(home, ".bashrc")
	if err := os.Symlink(real, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	if _, err := p.Patch(Bash); err != nil {
		t.Fatalf("Patch() error = %v", err)
	}

	info, err := os.Lstat(link)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode()&os.ModeSymlink == 0 {
		t.Errorf("startup file symlink was replaced by a regular file")
	}
	if !strings.Contains(readFile(t, real), "current_version") {
		t.Errorf("symlink target was not patched")
	}
}

func TestBlock_PointerOutsideHome(t *testing.T) {
	p := NewPatcher("/home/user", "/opt/bvm/current_version", ".bun/bin")
	block := p.Block(Bash)
	if !strings.Contains(block, `"/opt/bvm/current_version"`) {
		t.Errorf("expected absolute pointer path in block:\n%s", block)
	}
}

func TestClassify(t *testing.T) {
	p := NewPatcher("/home/user", "/home/user/bvm/current_version", ".bun/bin")
	tests := []struct {
		name   string
		family Family
		line   string
		want   LineKind
	}{
		{"installer root", Bash, `export BUN_INSTALL="$HOME/.bun"`, Drop},
		{"installer path", Zsh, `export PATH=$BUN_INSTALL/bin:$PATH`, Drop},
		{"marker", Bash, "  # bun  ", Drop},
		{"completions comment kept", Zsh, "# bun completions", Keep},
		{"managed posix", Bash, `    export PATH="$(cat "$HOME/bvm/current_version")/.bun/bin:$PATH"`, Managed},
		{"managed absolute", Bash, `export PATH="$(cat /home/user/bvm/current_version)/.bun/bin:$PATH"`, Managed},
		{"managed fish", Fish, `set -x PATH (cat "$HOME/bvm/current_version")/.bun/bin $PATH`, Managed},
		{"fish idiom on posix", Bash, `set -x PATH (cat "$HOME/bvm/current_version")/.bun/bin $PATH`, Keep},
		{"guard line", Bash, `if [ -f "$HOME/bvm/current_version" ]; then`, Keep},
		{"unrelated", Bash, `export PATH="$HOME/go/bin:$PATH"`, Keep},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Classify(tt.family, tt.line); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.line, got, tt.want)
			}
		})
	}
}

func TestInspect_DoesNotWrite(t *testing.T) {
	p, home := newTestPatcher(t)
	rc := filepath.Join(home, ".zshrc")
	original := "export BUN_INSTALL=\"$HOME/.bun\"\n"
	writeFile(t, rc, original)

	res, err := p.Inspect(Zsh)
	if err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}
	if !res.Changed || res.Removed != 1 || !res.BlockAdded {
		t.Errorf("Inspect() = %+v, want pending change with 1 removal and a block", res)
	}
	if got := readFile(t, rc); got != original {
		t.Errorf("Inspect() modified the file: %q", got)
	}

	if _, err := p.Patch(Zsh); err != nil {
		t.Fatal(err)
	}
	res, err = p.Inspect(Zsh)
	if err != nil {
		t.Fatal(err)
	}
	if res.Changed || res.BlockAdded {
		t.Errorf("Inspect() after Patch = %+v, want clean", res)
	}
}

// Package plugins runs external texrun-<command> binaries for commands
// texrun does not know, the way git and kubectl do.
package plugins

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Prefix is prepended to a command name to form the plugin binary name.
const Prefix = "texrun-"

// ErrNotFound is returned when no plugin binary can be located.
var ErrNotFound = errors.New("plugin not found")

// Finder locates plugin binaries.
type Finder struct {
	// Dirs are searched in order before PATH.
	Dirs []string

	// UsePath enables the final PATH lookup.
	UsePath bool
}

// DefaultFinder searches next to the texrun binary, then
// ~/.texrun/plugins, then PATH.
func DefaultFinder() *Finder {
	f := &Finder{UsePath: true}
	if execPath, err := os.Executable(); err == nil {
		f.Dirs = append(f.Dirs, filepath.Dir(execPath))
	}
	if home, err := os.UserHomeDir(); err == nil {
		f.Dirs = append(f.Dirs, filepath.Join(home, ".texrun", "plugins"))
	}
	return f
}

// Find returns the path of the plugin for command.
func (f *Finder) Find(command string) (string, error) {
	if command == "" || strings.ContainsAny(command, `/\`) {
		return "", ErrNotFound
	}
	name := Prefix + command

	for _, dir := range f.Dirs {
		candidate := filepath.Join(dir, name)
		if isExecutable(candidate) {
			return candidate, nil
		}
	}
	if f.UsePath {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Streams are the plugin's standard streams.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// Run executes the plugin and returns its exit code. A plugin that cannot
// be started reports 2, matching texrun's own runtime errors.
func Run(ctx context.Context, path string, args []string, s Streams) int {
	cmd := exec.CommandContext(ctx, path, args...) // #nosec G204 -- plugin path comes from Find
	cmd.Stdin = s.In
	cmd.Stdout = s.Out
	cmd.Stderr = s.Err

	err := cmd.Run()
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
		return exitErr.ExitCode()
	}
	if s.Err != nil {
		fmt.Fprintf(s.Err, "Error executing plugin: %v\n", err)
	}
	return 2
}

// NotFoundMessage explains where a plugin for command would be looked up.
func NotFoundMessage(command string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "unknown command %q for \"texrun\"\n", command)
	sb.WriteString("\nIf this is a plugin, install the binary as one of:\n")
	fmt.Fprintf(&sb, "  - %s%s in the same directory as texrun\n", Prefix, command)
	fmt.Fprintf(&sb, "  - ~/.texrun/plugins/%s%s\n", Prefix, command)
	fmt.Fprintf(&sb, "  - %s%s anywhere in your PATH\n", Prefix, command)
	sb.WriteString("\nRun 'texrun --help' for usage.")
	return sb.String()
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	return info.Mode()&0111 != 0
}

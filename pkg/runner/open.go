package runner

import (
	"fmt"
	"runtime"
)

// OpenCommand returns the viewer invocation for pdf on the given GOOS.
func OpenCommand(goos, pdf string) (Command, error) {
	switch goos {
	case "darwin":
		return Command{Name: "open", Args: []string{pdf}}, nil
	case "linux", "freebsd", "openbsd", "netbsd", "dragonfly":
		return Command{Name: "xdg-open", Args: []string{pdf}}, nil
	default:
		return Command{}, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, goos)
	}
}

func openCommand(pdf string) (Command, error) {
	return OpenCommand(runtime.GOOS, pdf)
}

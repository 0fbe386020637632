package commands

import "go.uber.org/zap"

// ExitCode is set by commands to indicate the result
var ExitCode = 0

// Globals carries state shared by every command. The root command fills
// it in before a subcommand runs.
type Globals struct {
	Debug  bool
	Logger *zap.Logger
}

// logger returns the configured logger or a no-op one.
func (g *Globals) logger() *zap.Logger {
	if g == nil || g.Logger == nil {
		return zap.NewNop()
	}
	return g.Logger
}

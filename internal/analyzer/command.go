package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"reelcat/internal/logging"
	"reelcat/internal/media/ffprobe"
	"reelcat/internal/services"
)

// Command delegates analysis to an external executable. The file path is
// passed as the final argument and the technical probe is written to stdin
// as JSON; the command must print a Result-shaped JSON object on stdout and
// exit zero.
type Command struct {
	command string
	timeout time.Duration
	logger  *slog.Logger
}

// NewCommand returns an analyzer backed by an external command. The command
// string is split on whitespace; the first field is the executable, the rest
// are leading arguments.
func NewCommand(command string, timeout time.Duration, logger *slog.Logger) *Command {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Command{
		command: command,
		timeout: timeout,
		logger:  logging.NewComponentLogger(logger, "analyzer"),
	}
}

// Analyze implements Analyzer.
func (c *Command) Analyze(ctx context.Context, path string, probe *ffprobe.Result) (*Result, error) {
	fields := strings.Fields(c.command)
	if len(fields) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "analyzer", "command", "empty analyzer command", nil)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	args := append(fields[1:], path)
	cmd := exec.CommandContext(ctx, fields[0], args...)

	if probe != nil {
		probeJSON, err := json.Marshal(probe)
		if err != nil {
			return nil, services.Wrap(services.ErrAnalysis, "analyzer", "command", "encode probe", err)
		}
		cmd.Stdin = bytes.NewReader(probeJSON)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		return nil, services.Wrap(services.ErrAnalysis, "analyzer", "command", detail, err)
	}

	var result Result
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		return nil, services.Wrap(services.ErrAnalysis, "analyzer", "parse", "invalid analyzer output", err)
	}

	c.logger.Debug("command analysis complete",
		logging.String(logging.FieldPath, path),
		logging.Duration("elapsed", time.Since(start)))
	return &result, nil
}

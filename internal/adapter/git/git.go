package git

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
)

// Client reads commit history of a local git checkout.
type Client struct {
	repoDir string
	log     *slog.Logger
}

func NewClient(repoDir string, log *slog.Logger) *Client {
	return &Client{
		repoDir: repoDir,
		log:     log.With(slog.String("item", "GitClient")),
	}
}

// LastCommitTime returns the author time (Unix seconds) of the last commit
// touching path, relative to the repository root. A path without history
// yields 0.
func (c *Client) LastCommitTime(ctx context.Context, path string) (int64, error) {
	cmd := exec.CommandContext(ctx, "git", "-C", c.repoDir, "log", "-1", "--format=%at", "--", path)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("git log failed for %s: %s: %w", path, strings.TrimSpace(stderr.String()), err)
	}

	out := strings.TrimSpace(stdout.String())
	if out == "" {
		c.log.Debug("No history", slog.String("path", path))

		return 0, nil
	}

	ts, err := strconv.ParseInt(out, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected git log output for %s: %q", path, out)
	}

	return ts, nil
}

// IsGitRepository checks if the client's directory is inside a work tree.
func (c *Client) IsGitRepository(ctx context.Context) bool {
	cmd := exec.CommandContext(ctx, "git", "-C", c.repoDir, "rev-parse", "--is-inside-work-tree")

	return cmd.Run() == nil
}

// Package git drives the git CLI to keep a checkout on a moving branch.
package git

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/thoreinstein/provision/internal/shell"
)

// ErrInvalidURL is returned by ValidateURL.
var ErrInvalidURL = errors.New("invalid git URL")

var (
	schemeRe = regexp.MustCompile(`^(https?|ssh|git|file)://[^\s]+$`)
	scpRe    = regexp.MustCompile(`^[A-Za-z0-9._-]+@[A-Za-z0-9.-]+:[^\s]+\.git$`)
)

// IsURL returns true if s looks like a git repository URL.
// It checks for:
//   - URLs containing "://" (e.g., https://, git://)
//   - URLs ending with ".git"
//   - SSH-style URLs starting with "git@"
func IsURL(s string) bool {
	return strings.Contains(s, "://") || strings.HasSuffix(s, ".git") || strings.HasPrefix(s, "git@")
}

// ValidateURL rejects anything that is not an http(s), ssh, git or file URL,
// or an scp-like user@host:path.git address. Leading dashes and transport
// helpers such as ext:: are refused so a URL cannot be read as an option.
func ValidateURL(url string) error {
	if url == "" || strings.HasPrefix(url, "-") {
		return errors.Wrapf(ErrInvalidURL, "%q", url)
	}
	if schemeRe.MatchString(url) || scpRe.MatchString(url) {
		return nil
	}
	return errors.Wrapf(ErrInvalidURL, "%q", url)
}

// ValidateRemote checks if repoPath is a valid git repository by verifying
// the existence of a .git directory.
func ValidateRemote(repoPath string) error {
	gitDir := filepath.Join(repoPath, ".git")
	info, err := os.Stat(gitDir)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Newf("not a git repository: %s", repoPath)
		}
		return errors.Wrap(err, "checking git directory")
	}
	if !info.IsDir() {
		return errors.Newf(".git is not a directory: %s", gitDir)
	}
	return nil
}

// Client runs git through a shell.Runner.
type Client struct {
	runner shell.Runner
}

// New returns a Client.
func New(r shell.Runner) *Client {
	return &Client{runner: r}
}

func (c *Client) git(ctx context.Context, dir string, args ...string) (string, error) {
	sub := args[0]
	if dir != "" {
		args = append([]string{"-C", dir}, args...)
	}
	res, err := c.runner.Run(ctx, shell.Command("git", args...))
	if err != nil {
		return "", errors.Wrapf(err, "git %s", sub)
	}
	return res.Output(), nil
}

// Clone clones url into dest with branch checked out.
func (c *Client) Clone(ctx context.Context, url, dest, branch string) error {
	if err := ValidateURL(url); err != nil {
		return err
	}
	cmd := shell.Command("git", "clone", "--branch", branch, "--", url, dest)
	cmd.Stream = true
	if _, err := c.runner.Run(ctx, cmd); err != nil {
		return errors.Wrap(err, "git clone failed")
	}
	return nil
}

// Head returns the commit id checked out in dir.
func (c *Client) Head(ctx context.Context, dir string) (string, error) {
	return c.git(ctx, dir, "rev-parse", "HEAD")
}

// Fetch fetches branch from origin.
func (c *Client) Fetch(ctx context.Context, dir, branch string) error {
	_, err := c.git(ctx, dir, "fetch", "origin", branch)
	return err
}

// ResetHard moves the checkout in dir to ref, discarding local changes.
func (c *Client) ResetHard(ctx context.Context, dir, ref string) error {
	_, err := c.git(ctx, dir, "reset", "--hard", ref)
	return err
}

// Track brings dir to origin/<branch>: fetch, switch to branch when another
// one is checked out, then hard reset. It reports whether HEAD moved.
func (c *Client) Track(ctx context.Context, dir, branch string) (bool, error) {
	before, err := c.Head(ctx, dir)
	if err != nil {
		return false, err
	}
	if err := c.Fetch(ctx, dir, branch); err != nil {
		return false, err
	}

	current, err := c.git(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return false, err
	}
	if current != branch {
		if _, err := c.git(ctx, dir, "checkout", "-B", branch, "origin/"+branch); err != nil {
			return false, err
		}
	}

	if err := c.ResetHard(ctx, dir, "origin/"+branch); err != nil {
		return false, err
	}
	after, err := c.Head(ctx, dir)
	if err != nil {
		return false, err
	}
	return before != after, nil
}

package git

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"rtool/pkg/exec"
	"rtool/pkg/logx"
)

// ErrNoTags means the repository has no tag reachable from HEAD.
var ErrNoTags = errors.New("no tags found in repository")

// Description is the parsed output of `git describe --tags --long`.
type Description struct {
	Tag      string
	Commit   string
	Distance int
}

// ParseDescription splits describe output from the right into tag, distance and commit.
// Tags may themselves contain dashes.
func ParseDescription(out string) (Description, error) {
	out = strings.TrimSpace(out)
	parts := strings.Split(out, "-")
	if len(parts) < 3 {
		return Description{}, fmt.Errorf("unexpected describe output %q", out)
	}
	n := len(parts)
	distance, err := strconv.Atoi(parts[n-2])
	if err != nil || distance < 0 {
		return Description{}, fmt.Errorf("unexpected tag distance in describe output %q", out)
	}
	return Description{
		Tag:      strings.Join(parts[:n-2], "-"),
		Distance: distance,
		Commit:   parts[n-1],
	}, nil
}

// Repo runs source-control operations in a repository root.
type Repo struct {
	runner Runner
	logger *logx.Logger
	dir    string
}

// NewRepo creates a repository handle rooted at dir.
func NewRepo(runner Runner, dir string) *Repo {
	return &Repo{
		runner: runner,
		dir:    dir,
		logger: logx.NewLogger("git"),
	}
}

// Dir returns the repository root.
func (r *Repo) Dir() string {
	return r.dir
}

func (r *Repo) run(ctx context.Context, args ...string) (string, error) {
	out, err := r.runner.Run(ctx, r.dir, args...)
	if err != nil {
		return string(out), fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return string(out), nil
}

// Describe reports the last tag, the number of commits since it and the abbreviated commit.
func (r *Repo) Describe(ctx context.Context) (Description, error) {
	out, err := r.run(ctx, "describe", "--tags", "--long")
	if err != nil {
		if isNoTagsError(err) {
			return Description{}, fmt.Errorf("%w: %w", ErrNoTags, err)
		}
		return Description{}, err
	}
	return ParseDescription(out)
}

func isNoTagsError(err error) bool {
	var pe *exec.ProcessError
	if !errors.As(err, &pe) {
		return false
	}
	return strings.Contains(pe.Stderr, "No names found") ||
		strings.Contains(pe.Stderr, "No tags can describe") ||
		strings.Contains(pe.Stderr, "cannot describe")
}

// Status returns the porcelain status; empty output means a clean working tree.
func (r *Repo) Status(ctx context.Context) (string, error) {
	out, err := r.run(ctx, "status", "--porcelain")
	return strings.TrimSpace(out), err
}

// Shortlog returns contributor commit counts, most active first.
func (r *Repo) Shortlog(ctx context.Context) (string, error) {
	// An explicit revision keeps git from reading the log from stdin.
	return r.run(ctx, "shortlog", "-n", "-s", "HEAD")
}

// Tag creates a lightweight tag at HEAD.
func (r *Repo) Tag(ctx context.Context, name string) error {
	r.logger.Info("🏷️  Tagging %s", name)
	_, err := r.run(ctx, "tag", name)
	return err
}

// PushTags pushes all tags to the default remote.
func (r *Repo) PushTags(ctx context.Context) error {
	r.logger.Info("⬆️  Pushing tags")
	_, err := r.run(ctx, "push", "--tags")
	return err
}

// Push pushes the current branch to the default remote.
func (r *Repo) Push(ctx context.Context) error {
	r.logger.Info("⬆️  Pushing")
	_, err := r.run(ctx, "push")
	return err
}

// CommitAll commits every tracked modification.
func (r *Repo) CommitAll(ctx context.Context, message string) error {
	_, err := r.run(ctx, "commit", "-a", "-m", message)
	return err
}

// CheckoutPath restores a path from HEAD, discarding local modifications.
func (r *Repo) CheckoutPath(ctx context.Context, path string) error {
	_, err := r.run(ctx, "checkout", "--", path)
	return err
}

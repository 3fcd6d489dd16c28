// Package version resolves the released project's version from its single source of
// truth, derives snapshot versions from source control, and rewrites the version file.
// It also carries the build information of the rtool binary.
package version

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"rtool/pkg/git"
	"rtool/pkg/logx"
)

var (
	// ErrVersionFile means the version file is missing or has no IVERSION assignment.
	ErrVersionFile = errors.New("version file missing or malformed")

	// ErrVersionPattern means set-version found nothing to rewrite.
	ErrVersionPattern = errors.New("IVERSION assignment not found")

	// ErrInvalidVersion means a dotted version string could not be parsed.
	ErrInvalidVersion = errors.New("invalid version")

	// ErrNoTags means source control has no tag to describe the snapshot from.
	ErrNoTags = git.ErrNoTags
)

//nolint:gochecknoglobals // Compiled once.
var iversionPattern = regexp.MustCompile(`IVERSION\s*=\s*\(([\d,\s]+)\)`)

// Version is a numeric version tuple such as (0, 17, 1).
type Version []int

// String renders the tuple in dotted form.
func (v Version) String() string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ".")
}

// tuple renders the comma-separated form used inside IVERSION = (...).
func (v Version) tuple() string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}

// ParseVersion parses a dotted version string such as "1.2.3".
func ParseVersion(s string) (Version, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty string", ErrInvalidVersion)
	}
	fields := strings.Split(s, ".")
	v := make(Version, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 || strings.HasPrefix(f, "+") {
			return nil, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
		}
		v = append(v, n)
	}
	return v, nil
}

// Describer reports the position of HEAD relative to the last tag.
type Describer interface {
	Describe(ctx context.Context) (git.Description, error)
}

// SnapshotString formats a snapshot version: the plain version when HEAD is tagged,
// otherwise "{version}dev{distance:04}-{commit}".
func SnapshotString(version string, distance int, commit string) string {
	if distance == 0 {
		return version
	}
	return fmt.Sprintf("%sdev%04d-%s", version, distance, commit)
}

// Resolver reads and rewrites the version file.
type Resolver struct {
	describer Describer
	logger    *logx.Logger
	path      string
}

// NewResolver creates a resolver for the version file at path.
func NewResolver(path string, describer Describer) *Resolver {
	return &Resolver{
		path:      path,
		describer: describer,
		logger:    logx.NewLogger("version"),
	}
}

// Path returns the version file path.
func (r *Resolver) Path() string {
	return r.path
}

// Get loads the version tuple from the version file. The file is read on every call.
func (r *Resolver) Get() (Version, error) {
	content, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrVersionFile, err)
	}

	match := iversionPattern.FindSubmatch(content)
	if match == nil {
		return nil, fmt.Errorf("%w: no IVERSION assignment in %s", ErrVersionFile, r.path)
	}

	var v Version
	for _, field := range strings.Split(string(match[1]), ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue // trailing comma, e.g. (0, 17,)
		}
		n, convErr := strconv.Atoi(field)
		if convErr != nil {
			return nil, fmt.Errorf("%w: bad component %q in %s", ErrVersionFile, field, r.path)
		}
		v = append(v, n)
	}
	if len(v) == 0 {
		return nil, fmt.Errorf("%w: empty IVERSION in %s", ErrVersionFile, r.path)
	}
	return v, nil
}

// Snapshot derives the snapshot version from the distance to the last tag.
func (r *Resolver) Snapshot(ctx context.Context) (string, error) {
	v, err := r.Get()
	if err != nil {
		return "", err
	}
	desc, err := r.describer.Describe(ctx)
	if err != nil {
		return "", err
	}
	snapshot := SnapshotString(v.String(), desc.Distance, desc.Commit)
	r.logger.Debug("Snapshot version %s (tag %s, distance %d)", snapshot, desc.Tag, desc.Distance)
	return snapshot, nil
}

// Set rewrites IVERSION in the version file. A file without the assignment is left
// untouched and ErrVersionPattern is returned.
func (r *Resolver) Set(version string) error {
	v, err := ParseVersion(version)
	if err != nil {
		return err
	}

	info, err := os.Stat(r.path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrVersionFile, err)
	}
	content, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrVersionFile, err)
	}

	if !iversionPattern.Match(content) {
		return fmt.Errorf("%w in %s", ErrVersionPattern, r.path)
	}

	replacement := []byte("IVERSION = (" + v.tuple() + ")")
	updated := iversionPattern.ReplaceAllLiteral(content, replacement)

	r.logger.Info("📝 Updating %s to %s...", r.path, v)
	if err := os.WriteFile(r.path, updated, info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to write version file: %w", err)
	}
	return nil
}

package git

import (
	"context"
	"fmt"
	"os"
)

// UpdateContributors regenerates the contributors file wholesale from the shortlog.
func (r *Repo) UpdateContributors(ctx context.Context, path string) error {
	r.logger.Info("👥 Updating %s...", path)
	shortlog, err := r.Shortlog(ctx)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(shortlog), 0644); err != nil {
		return fmt.Errorf("failed to write contributors file: %w", err)
	}
	return nil
}

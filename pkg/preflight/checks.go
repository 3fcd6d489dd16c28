package preflight

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

//nolint:gochecknoglobals // Replaced in tests through Checker.lookPath.
var lookPath = exec.LookPath

// checkCleanTree verifies there is nothing uncommitted in the repository.
func (c *Checker) checkCleanTree(ctx context.Context) CheckResult {
	result := CheckResult{Check: CheckCleanTree}

	status, err := c.repo.Status(ctx)
	if err != nil {
		result.Message = "Could not read working tree status"
		result.Error = err
		return result
	}
	if status != "" {
		changed := strings.Count(status, "\n") + 1
		result.Message = fmt.Sprintf("%d uncommitted change(s)", changed)
		result.Error = fmt.Errorf("%w:\n%s", ErrDirtyTree, status)
		return result
	}

	result.Passed = true
	result.Message = "Working tree is clean"
	return result
}

// checkTools verifies every required executable resolves on PATH.
func (c *Checker) checkTools() CheckResult {
	result := CheckResult{Check: CheckTools}

	var missing []string
	for _, tool := range RequiredTools(c.cfg) {
		if _, err := c.lookPath(tool); err != nil {
			missing = append(missing, tool)
		}
	}
	if len(missing) > 0 {
		result.Message = "Missing: " + strings.Join(missing, ", ")
		result.Error = fmt.Errorf("%w: %s", ErrMissingTool, strings.Join(missing, ", "))
		return result
	}

	result.Passed = true
	result.Message = "All required tools found"
	return result
}

// checkVersionFile verifies the version file parses.
func (c *Checker) checkVersionFile() CheckResult {
	result := CheckResult{Check: CheckVersionFile}

	v, err := c.version()
	if err != nil {
		result.Message = "Version file unreadable"
		result.Error = err
		return result
	}

	result.Passed = true
	result.Message = fmt.Sprintf("Version %s (%s)", v, c.cfg.VersionFile)
	return result
}

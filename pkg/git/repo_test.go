package git

import (
	"context"
	"errors"
	"os"
	osexec "os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rtool/internal/mocks"
	"rtool/pkg/exec"
)

func TestParseDescription(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		want    Description
		wantErr bool
	}{
		{"tagged head", "v0.17-0-g1a2b3c4\n", Description{Tag: "v0.17", Distance: 0, Commit: "g1a2b3c4"}, false},
		{"commits since tag", "v0.17-7-gabc1234", Description{Tag: "v0.17", Distance: 7, Commit: "gabc1234"}, false},
		{"dashed tag", "release-1.0-rc1-12-gdeadbee", Description{Tag: "release-1.0-rc1", Distance: 12, Commit: "gdeadbee"}, false},
		{"too short", "v0.17", Description{}, true},
		{"bad distance", "v0.17-x-gabc", Description{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDescription(tt.out)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRepoDescribe(t *testing.T) {
	runner := mocks.NewMockGitRunner()
	runner.RespondTo("describe", "v1.2-3-gcafe123\n")
	repo := NewRepo(runner, "/repo")

	desc, err := repo.Describe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, desc.Distance)
	assert.Equal(t, []string{"git describe --tags --long"}, runner.Commands())
	assert.Equal(t, "/repo", runner.RunCalls[0].Dir)
}

func TestRepoDescribeWithoutTags(t *testing.T) {
	runner := mocks.NewMockGitRunner()
	runner.FailCommandWith("describe", &exec.ProcessError{
		Argv:     []string{"git", "describe", "--tags", "--long"},
		ExitCode: 128,
		Stderr:   "fatal: No names found, cannot describe anything.",
	})

	_, err := NewRepo(runner, "/repo").Describe(context.Background())
	require.ErrorIs(t, err, ErrNoTags)
}

func TestRepoStatus(t *testing.T) {
	runner := mocks.NewMockGitRunner()
	repo := NewRepo(runner, "/repo")

	status, err := repo.Status(context.Background())
	require.NoError(t, err)
	assert.Empty(t, status)

	runner.RespondTo("status", " M netlib/netlib/version.py\n")
	status, err = repo.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "M netlib/netlib/version.py", status)
}

func TestRepoWriteOperations(t *testing.T) {
	runner := mocks.NewMockGitRunner()
	repo := NewRepo(runner, "/repo")
	ctx := context.Background()

	require.NoError(t, repo.Tag(ctx, "v0.17"))
	require.NoError(t, repo.PushTags(ctx))
	require.NoError(t, repo.CommitAll(ctx, "bump version"))
	require.NoError(t, repo.Push(ctx))
	require.NoError(t, repo.CheckoutPath(ctx, "CONTRIBUTORS"))

	assert.Equal(t, []string{
		"git tag v0.17",
		"git push --tags",
		"git commit -a -m bump version",
		"git push",
		"git checkout -- CONTRIBUTORS",
	}, runner.Commands())
}

func TestRepoErrorsNameTheCommand(t *testing.T) {
	runner := mocks.NewMockGitRunner()
	boom := errors.New("remote rejected")
	runner.FailCommandWith("push", boom)

	err := NewRepo(runner, "/repo").PushTags(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "git push --tags")
}

func TestUpdateContributors(t *testing.T) {
	runner := mocks.NewMockGitRunner()
	runner.RespondTo("shortlog", "   120\tAlice\n    14\tBob\n")
	path := filepath.Join(t.TempDir(), "CONTRIBUTORS")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0644))

	require.NoError(t, NewRepo(runner, "/repo").UpdateContributors(context.Background(), path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "   120\tAlice\n    14\tBob\n", string(content))
	assert.Equal(t, []string{"git shortlog -n -s HEAD"}, runner.Commands())
}

// TestDefaultRunnerAgainstRealRepository exercises the runner with a real git binary.
func TestDefaultRunnerAgainstRealRepository(t *testing.T) {
	if _, err := osexec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	ctx := context.Background()
	repo := NewRepo(NewDefaultRunner(exec.NewLocalExec(nil)), dir)

	mustGit := func(args ...string) {
		t.Helper()
		_, err := repo.run(ctx, args...)
		require.NoError(t, err)
	}
	mustGit("init", "-q")
	mustGit("config", "user.email", "release@example.com")
	mustGit("config", "user.name", "Release Bot")
	mustGit("config", "commit.gpgsign", "false")
	mustGit("config", "tag.gpgsign", "false")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README"), []byte("hello"), 0644))
	status, err := repo.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "?? README", status)

	mustGit("add", "README")
	mustGit("commit", "-q", "-m", "initial")

	_, err = repo.Describe(ctx)
	require.ErrorIs(t, err, ErrNoTags)

	require.NoError(t, repo.Tag(ctx, "v0.1"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README"), []byte("hello again"), 0644))
	require.NoError(t, repo.CommitAll(ctx, "second"))

	desc, err := repo.Describe(ctx)
	require.NoError(t, err)
	assert.Equal(t, "v0.1", desc.Tag)
	assert.Equal(t, 1, desc.Distance)
	assert.Regexp(t, `^g[0-9a-f]+$`, desc.Commit)

	status, err = repo.Status(ctx)
	require.NoError(t, err)
	assert.Empty(t, status)
}

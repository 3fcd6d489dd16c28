package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rtool/internal/mocks"
	"rtool/pkg/config"
	"rtool/pkg/journal"
	"rtool/pkg/logx"
	"rtool/pkg/prompt"
	"rtool/pkg/publish"
	"rtool/pkg/version"
)

type fixture struct {
	app        *App
	executor   *mocks.MockExecutor
	git        *mocks.MockGitRunner
	prompter   *mocks.MockPrompter
	out        *bytes.Buffer
	errOut     *bytes.Buffer
	root       string
	releaseDir string
	journal    string
}

// isolatedEnv lists variables read by config loading and credential resolution.
var isolatedEnv = []string{
	"RTOOL_RELEASE_DIR", "RTOOL_ROOT_DIR", "RTOOL_VERSION_FILE", "RTOOL_DIST_DIR", "RTOOL_BUILD_DIR",
	"RTOOL_PYTHON", "RTOOL_VIRTUALENV", "RTOOL_UPLOAD_CLIENT", "RTOOL_REPOSITORY", "PYINSTALLER_VERSION",
	"SNAPSHOT_HOST", "SNAPSHOT_USER", "SNAPSHOT_KEY", "SNAPSHOT_KNOWN_HOSTS", "SNAPSHOT_PORT", "SNAPSHOT_PASS",
	"PYPI_USERNAME", "PYPI_PASSWORD", secretsPasswordEnv,
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	for _, name := range isolatedEnv {
		t.Setenv(name, "")
	}

	root := t.TempDir()
	releaseDir := filepath.Join(root, "release")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "netlib", "netlib"), 0755))
	require.NoError(t, os.MkdirAll(releaseDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "netlib", "netlib", "version.py"),
		[]byte("IVERSION = (0, 17)\nVERSION = '.'.join(str(i) for i in IVERSION)\n"), 0644))

	f := &fixture{
		executor:   mocks.NewMockExecutor(),
		git:        mocks.NewMockGitRunner(),
		prompter:   mocks.NewMockPrompter(),
		out:        &bytes.Buffer{},
		errOut:     &bytes.Buffer{},
		root:       root,
		releaseDir: releaseDir,
		journal:    filepath.Join(root, "journal.db"),
	}
	t.Setenv("RTOOL_JOURNAL", f.journal)
	t.Cleanup(func() { logx.SetOutput(nil) })

	f.app = newApp(strings.NewReader(""), f.out, f.errOut)
	f.app.executor = f.executor
	f.app.gitRunner = f.git
	f.app.prompter = f.prompter
	return f
}

func (f *fixture) run(args ...string) int {
	return f.app.run(context.Background(), append([]string{"--release-dir", f.releaseDir}, args...))
}

func (f *fixture) writeDist(t *testing.T, names ...string) {
	t.Helper()
	dist := filepath.Join(f.releaseDir, "dist")
	require.NoError(t, os.MkdirAll(dist, 0755))
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dist, name), []byte("content of "+name), 0644))
	}
}

func (f *fixture) runs(t *testing.T) []journal.Run {
	t.Helper()
	j, err := journal.Open(f.journal)
	require.NoError(t, err)
	defer j.Close()

	runs, err := j.RecentRuns(context.Background(), 0)
	require.NoError(t, err)
	return runs
}

func TestDebugLogsGoToErrorStream(t *testing.T) {
	f := newFixture(t)
	t.Cleanup(func() { logx.SetDebug(false) })

	code := f.run("--debug", "set-version", "0.18")
	require.Equal(t, ExitSuccess, code, f.errOut.String())

	assert.Contains(t, f.errOut.String(), "[rtool] DEBUG: State setup: config - "+f.releaseDir)
	assert.NotContains(t, f.out.String(), "DEBUG")
}

func TestChainRunsCommandsInOrder(t *testing.T) {
	f := newFixture(t)
	f.git.RespondTo("shortlog", "    10\tAlice\n     3\tBob\n")

	code := f.run("set-version", "0.18", "contributors")
	require.Equal(t, ExitSuccess, code, f.errOut.String())

	content, err := os.ReadFile(filepath.Join(f.root, "netlib", "netlib", "version.py"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "IVERSION = (0, 18)")

	contributors, err := os.ReadFile(filepath.Join(f.root, config.ContributorsFileName))
	require.NoError(t, err)
	assert.Equal(t, "    10\tAlice\n     3\tBob\n", string(contributors))

	runs := f.runs(t)
	require.Len(t, runs, 2)
	assert.Equal(t, "contributors", runs[0].Command)
	assert.Equal(t, "0.18", runs[0].Version)
	assert.Equal(t, "set-version", runs[1].Command)
	assert.Equal(t, "0.17", runs[1].Version)
	assert.Equal(t, journal.StatusSucceeded, runs[1].Status)
	assert.Equal(t, []string{"netlib", "pathod", "mitmproxy"}, runs[1].Projects)
}

func TestChainStopsAtFirstFailure(t *testing.T) {
	f := newFixture(t)

	code := f.run("set-version", "banana", "contributors")
	assert.Equal(t, ExitConfigError, code)
	assert.Contains(t, f.errOut.String(), "Error:")
	assert.Empty(t, f.git.RunCalls)

	runs := f.runs(t)
	require.Len(t, runs, 1)
	assert.Equal(t, "set-version", runs[0].Command)
	assert.Equal(t, journal.StatusFailed, runs[0].Status)
	assert.NotEmpty(t, runs[0].Error)
}

func TestUsageErrors(t *testing.T) {
	tests := []struct {
		name    string
		wantErr string
		args    []string
	}{
		{"unknown command", "unknown command", []string{"frobnicate"}},
		{"unknown flag", "unknown flag", []string{"sdist", "--frobnicate"}},
		{"missing argument", "accepts 1 arg", []string{"set-version"}},
		{"unknown project", "unknown project", []string{"-p", "nope", "sdist"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			assert.Equal(t, ExitConfigError, f.run(tt.args...))
			assert.Contains(t, f.errOut.String(), tt.wantErr)
			assert.Empty(t, f.executor.Calls)
		})
	}
}

func TestVersionFlag(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, ExitSuccess, f.run("--version"))
	assert.Contains(t, f.out.String(), version.BuildVersion)
}

func TestUploadReleaseCredentialsFromEnvAndPrompt(t *testing.T) {
	f := newFixture(t)
	f.writeDist(t, "netlib-0.17.tar.gz")
	t.Setenv("PYPI_USERNAME", "alice")
	f.prompter.Script("PyPI Password", mocks.PromptAnswer{Value: "s3cret"})

	code := f.run("-p", "netlib", "upload-release", "--no-wheel", "--repository", "testpypi")
	require.Equal(t, ExitSuccess, code, f.errOut.String())

	assert.Equal(t, []string{
		"twine upload -u alice -p s3cret -r testpypi " + filepath.Join(f.releaseDir, "dist", "netlib-0.17.tar.gz"),
	}, f.executor.Commands())
	assert.Equal(t, []string{"PyPI Password"}, f.prompter.Asked)
}

func TestUploadReleaseCredentialsFromSecretsStore(t *testing.T) {
	f := newFixture(t)
	store := config.NewSecretStore(filepath.Join(f.releaseDir, ".rtool", "secrets.json.enc"))
	store.Set(config.SecretPyPIUsername, "bob")
	store.Set(config.SecretPyPIPassword, "hunter2")
	require.NoError(t, store.Save("store-pass"))
	t.Setenv(secretsPasswordEnv, "store-pass")

	code := f.run("-p", "netlib", "upload-release", "--no-sdist")
	require.Equal(t, ExitSuccess, code, f.errOut.String())

	require.Len(t, f.executor.Calls, 1)
	assert.Equal(t, []string{"twine", "upload", "-u", "bob", "-p", "hunter2", "-r", "pypi"}, f.executor.Calls[0].Argv[:8])
	assert.Empty(t, f.prompter.Asked)
}

func TestWrongSecretsPassword(t *testing.T) {
	f := newFixture(t)
	store := config.NewSecretStore(filepath.Join(f.releaseDir, ".rtool", "secrets.json.enc"))
	store.Set(config.SecretPyPIUsername, "bob")
	require.NoError(t, store.Save("store-pass"))
	t.Setenv(secretsPasswordEnv, "wrong")

	assert.Equal(t, ExitConfigError, f.run("upload-release"))
	assert.Contains(t, f.errOut.String(), "decryption failed")
	assert.Empty(t, f.executor.Calls)
}

func TestAbortedPromptExitCode(t *testing.T) {
	f := newFixture(t)
	f.prompter.Script("PyPI Username", mocks.PromptAnswer{Err: prompt.ErrAborted})

	assert.Equal(t, ExitAborted, f.run("upload-release"))

	runs := f.runs(t)
	require.Len(t, runs, 1)
	assert.Equal(t, journal.StatusAborted, runs[0].Status)
}

func TestMetricsFile(t *testing.T) {
	f := newFixture(t)
	f.writeDist(t, "netlib-0.17.tar.gz")
	t.Setenv("PYPI_USERNAME", "alice")
	t.Setenv("PYPI_PASSWORD", "s3cret")
	metricsFile := filepath.Join(f.root, "metrics", "rtool.prom")

	code := f.run("--metrics-file", metricsFile, "-p", "netlib", "upload-release", "--no-wheel")
	require.Equal(t, ExitSuccess, code, f.errOut.String())

	content, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), `rtool_stage_duration_seconds_count{stage="upload-release",status="success"} 1`)
	assert.Contains(t, string(content), `rtool_uploaded_bytes_total{target="index"}`)
}

type staticDialer struct {
	fs publish.RemoteFS
}

func (d staticDialer) Dial(context.Context) (publish.RemoteFS, error) {
	return d.fs, nil
}

func TestUploadSnapshot(t *testing.T) {
	f := newFixture(t)
	f.writeDist(t, "netlib-0.17.tar.gz")
	f.git.RespondTo("describe", "v0.17-5-gabc1234\n")
	f.prompter.
		Script("Snapshot user", mocks.PromptAnswer{Value: "snap"}).
		Script("Private key password", mocks.PromptAnswer{Value: ""})

	remote := mocks.NewMemoryRemoteFS()
	var dialed *publish.SFTPDialer
	f.app.dialer = func(d *publish.SFTPDialer) publish.Dialer {
		dialed = d
		return staticDialer{fs: remote}
	}

	code := f.run("-p", "netlib", "upload-snapshot", "--sdist", "--host", "snapshots.example.org")
	require.Equal(t, ExitSuccess, code, f.errOut.String())

	require.NotNil(t, dialed)
	assert.Equal(t, "snapshots.example.org", dialed.Host)
	assert.Equal(t, config.DefaultSnapshotPort, dialed.Port)
	assert.Equal(t, "snap", dialed.User)
	assert.Equal(t, filepath.Join(f.releaseDir, config.DefaultPrivateKey), dialed.PrivateKey)

	content, ok := remote.ReadFile("snapshots/v0.17/netlib-0.17dev0005-gabc1234.tar.gz")
	require.True(t, ok)
	assert.Equal(t, "content of netlib-0.17.tar.gz", string(content))
	target, ok := remote.Readlink("snapshots/netlib-latest.tar.gz")
	require.True(t, ok)
	assert.Equal(t, "v0.17/netlib-0.17dev0005-gabc1234.tar.gz", target)

	j, err := journal.Open(f.journal)
	require.NoError(t, err)
	defer j.Close()
	runs, err := j.RecentRuns(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	artifacts, err := j.Artifacts(context.Background(), runs[0].ID)
	require.NoError(t, err)
	require.Len(t, artifacts, 1)
	assert.Equal(t, "netlib-0.17dev0005-gabc1234.tar.gz", artifacts[0].Name)
}

// fakeTools puts stub executables for every required tool on PATH.
func fakeTools(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub executables are shell scripts")
	}
	bin := t.TempDir()
	for _, tool := range []string{"git", "python", "virtualenv", "twine"} {
		require.NoError(t, os.WriteFile(filepath.Join(bin, tool), []byte("#!/bin/sh\n"), 0755))
	}
	t.Setenv("PATH", bin)
}

func TestDoctor(t *testing.T) {
	fakeTools(t)

	t.Run("all checks pass", func(t *testing.T) {
		f := newFixture(t)
		assert.Equal(t, ExitSuccess, f.run("doctor"), f.errOut.String())
		assert.Contains(t, f.out.String(), "All 3 preflight checks passed")
	})

	t.Run("dirty tree", func(t *testing.T) {
		f := newFixture(t)
		f.git.RespondTo("status", " M setup.py\n")

		assert.Equal(t, ExitEnvError, f.run("doctor"))
		assert.Contains(t, f.out.String(), "clean-tree")
	})
}

func TestHistory(t *testing.T) {
	f := newFixture(t)

	code := f.run("set-version", "0.18", "history")
	require.Equal(t, ExitSuccess, code, f.errOut.String())

	out := f.out.String()
	assert.Contains(t, out, "set-version")
	assert.Contains(t, out, "succeeded")
	assert.Contains(t, out, "netlib,pathod,mitmproxy")
}

func TestHistoryWithJournalDisabled(t *testing.T) {
	f := newFixture(t)
	t.Setenv("RTOOL_JOURNAL", "")

	assert.Equal(t, ExitFailure, f.run("history"))
	assert.Contains(t, f.errOut.String(), journal.ErrDisabled.Error())
}

func TestSecretsSetAndList(t *testing.T) {
	f := newFixture(t)
	t.Setenv(secretsPasswordEnv, "store-pass")
	f.prompter.
		Script(config.SecretPyPIUsername, mocks.PromptAnswer{Value: "alice"}).
		Script(config.SecretPyPIPassword, mocks.PromptAnswer{Value: "s3cret"})

	code := f.run("secrets", "set", config.SecretPyPIUsername, "secrets", "set", config.SecretPyPIPassword, "secrets", "list")
	require.Equal(t, ExitSuccess, code, f.errOut.String())
	assert.Equal(t, config.SecretPyPIPassword+"\n"+config.SecretPyPIUsername+"\n", f.out.String())

	store := config.NewSecretStore(filepath.Join(f.releaseDir, ".rtool", "secrets.json.enc"))
	require.NoError(t, store.Unlock("store-pass"))
	assert.Equal(t, "alice", store.Get(config.SecretPyPIUsername))
	assert.Equal(t, "s3cret", store.Get(config.SecretPyPIPassword))
}

// Package config provides configuration loading, validation, and the project registry
// for the release tool. It reads rtool.yaml or rtool.toml from the release directory and
// falls back to the built-in registry when neither exists.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config file names, checked in order.
var configFileNames = []string{"rtool.yaml", "rtool.yml", "rtool.toml"} //nolint:gochecknoglobals

// Defaults matching the repository layout of the released projects.
const (
	DefaultRootDir      = ".."
	DefaultVersionFile  = "netlib/netlib/version.py"
	DefaultDistDir      = "dist"
	DefaultBuildDir     = "build"
	DefaultPython       = "python"
	DefaultVirtualenv   = "virtualenv"
	DefaultUploadClient = "twine"
	DefaultPyInstaller  = "PyInstaller~=3.1.1"
	DefaultRepository   = "pypi"
	DefaultSnapshotDir  = "snapshots"
	DefaultSnapshotPort = 22
	DefaultPrivateKey   = "rtool.pem"
	DefaultJournal      = "build/journal.db"

	ContributorsFileName = "CONTRIBUTORS"
	secretsDir           = ".rtool"
)

var (
	// ErrInvalidConfig marks configuration that cannot be used.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnknownProject is returned when a selected project is not in the registry.
	ErrUnknownProject = errors.New("unknown project")
)

// SnapshotConfig describes the snapshot server.
type SnapshotConfig struct {
	Host       string `yaml:"host" toml:"host"`
	User       string `yaml:"user" toml:"user"`
	PrivateKey string `yaml:"private_key" toml:"private_key"`
	KnownHosts string `yaml:"known_hosts" toml:"known_hosts"`
	Dir        string `yaml:"dir" toml:"dir"`
	Port       int    `yaml:"port" toml:"port"`
}

// Config is the typed configuration shared by every command of a run.
//
//nolint:govet // Field order follows the config file layout.
type Config struct {
	// ReleaseDir holds the config file, tool spec files and the default dist/build dirs.
	ReleaseDir string `yaml:"-" toml:"-"`

	RootDir      string `yaml:"root_dir" toml:"root_dir"`
	VersionFile  string `yaml:"version_file" toml:"version_file"`
	DistDir      string `yaml:"dist_dir" toml:"dist_dir"`
	BuildDir     string `yaml:"build_dir" toml:"build_dir"`
	Python       string `yaml:"python" toml:"python"`
	Virtualenv   string `yaml:"virtualenv" toml:"virtualenv"`
	UploadClient string `yaml:"upload_client" toml:"upload_client"`
	PyInstaller  string `yaml:"pyinstaller" toml:"pyinstaller"`
	Repository   string `yaml:"repository" toml:"repository"`

	// Journal is the run journal database path; empty disables the journal.
	Journal string `yaml:"journal" toml:"journal"`

	Snapshot SnapshotConfig `yaml:"snapshot" toml:"snapshot"`
	Projects []Project      `yaml:"projects" toml:"projects"`

	// Platform is resolved once at load time.
	Platform Platform `yaml:"-" toml:"-"`
}

// Default returns the configuration used when no config file is present.
func Default() *Config {
	return &Config{
		RootDir:      DefaultRootDir,
		VersionFile:  DefaultVersionFile,
		DistDir:      DefaultDistDir,
		BuildDir:     DefaultBuildDir,
		Python:       DefaultPython,
		Virtualenv:   DefaultVirtualenv,
		UploadClient: DefaultUploadClient,
		PyInstaller:  DefaultPyInstaller,
		Repository:   DefaultRepository,
		Journal:      DefaultJournal,
		Snapshot: SnapshotConfig{
			Port:       DefaultSnapshotPort,
			PrivateKey: DefaultPrivateKey,
			Dir:        DefaultSnapshotDir,
		},
		Projects: DefaultProjects(),
		Platform: DetectPlatform(),
	}
}

// Load reads the configuration for the given release directory.
func Load(releaseDir string) (*Config, error) {
	absRelease, err := filepath.Abs(releaseDir)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve release dir %s: %w", ErrInvalidConfig, releaseDir, err)
	}

	cfg := Default()
	cfg.ReleaseDir = absRelease

	for _, name := range configFileNames {
		path := filepath.Join(absRelease, name)
		if _, statErr := os.Stat(path); statErr != nil {
			continue
		}
		if err := decodeFile(path, cfg); err != nil {
			return nil, err
		}
		break
	}

	applyEnvOverrides(cfg)
	cfg.resolvePaths()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decodeFile overlays the file contents onto cfg.
func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: read %s: %w", ErrInvalidConfig, path, err)
	}

	// Decoders may reuse the backing array of the built-in registry, so configured
	// projects start from scratch. The registry is restored when the file lists none.
	builtin := cfg.Projects
	cfg.Projects = nil

	if strings.HasSuffix(path, ".toml") {
		_, err = toml.Decode(string(data), cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return fmt.Errorf("%w: parse %s: %w", ErrInvalidConfig, path, err)
	}

	if len(cfg.Projects) == 0 {
		cfg.Projects = builtin
	}
	return nil
}

// applyEnvOverrides applies RTOOL_* variables and the legacy PYINSTALLER_VERSION
// and SNAPSHOT_* variables.
func applyEnvOverrides(cfg *Config) {
	strs := map[string]*string{
		"RTOOL_ROOT_DIR":       &cfg.RootDir,
		"RTOOL_VERSION_FILE":   &cfg.VersionFile,
		"RTOOL_DIST_DIR":       &cfg.DistDir,
		"RTOOL_BUILD_DIR":      &cfg.BuildDir,
		"RTOOL_PYTHON":         &cfg.Python,
		"RTOOL_VIRTUALENV":     &cfg.Virtualenv,
		"RTOOL_UPLOAD_CLIENT":  &cfg.UploadClient,
		"RTOOL_REPOSITORY":     &cfg.Repository,
		"PYINSTALLER_VERSION":  &cfg.PyInstaller,
		"SNAPSHOT_HOST":        &cfg.Snapshot.Host,
		"SNAPSHOT_USER":        &cfg.Snapshot.User,
		"SNAPSHOT_KEY":         &cfg.Snapshot.PrivateKey,
		"SNAPSHOT_KNOWN_HOSTS": &cfg.Snapshot.KnownHosts,
	}
	for name, field := range strs {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			*field = v
		}
	}

	// RTOOL_JOURNAL may be set to an empty string to disable the journal.
	if v, ok := os.LookupEnv("RTOOL_JOURNAL"); ok {
		cfg.Journal = v
	}

	if v := os.Getenv("SNAPSHOT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Snapshot.Port = port
		} else {
			// Keep an invalid value so Validate reports it.
			cfg.Snapshot.Port = -1
		}
	}
}

func (c *Config) resolvePaths() {
	c.RootDir = absUnder(c.ReleaseDir, c.RootDir)
	c.VersionFile = absUnder(c.RootDir, c.VersionFile)
	c.DistDir = absUnder(c.ReleaseDir, c.DistDir)
	c.BuildDir = absUnder(c.ReleaseDir, c.BuildDir)
	c.Snapshot.PrivateKey = absUnder(c.ReleaseDir, c.Snapshot.PrivateKey)
	if c.Snapshot.KnownHosts != "" {
		c.Snapshot.KnownHosts = absUnder(c.ReleaseDir, expandHome(c.Snapshot.KnownHosts))
	}
	if c.Journal != "" {
		c.Journal = absUnder(c.ReleaseDir, c.Journal)
	}
	for i := range c.Projects {
		p := &c.Projects[i]
		if p.Dir == "" {
			p.Dir = p.Name
		}
		p.Dir = absUnder(c.RootDir, p.Dir)
	}
}

func absUnder(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Clean(filepath.Join(base, path))
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// Validate checks registry integrity and scalar ranges.
func (c *Config) Validate() error {
	if len(c.Projects) == 0 {
		return fmt.Errorf("%w: no projects configured", ErrInvalidConfig)
	}

	seen := make(map[string]bool, len(c.Projects))
	for i := range c.Projects {
		p := &c.Projects[i]
		if p.Name == "" {
			return fmt.Errorf("%w: project #%d has no name", ErrInvalidConfig, i+1)
		}
		if seen[p.Name] {
			return fmt.Errorf("%w: duplicate project %q", ErrInvalidConfig, p.Name)
		}
		seen[p.Name] = true
		if p.PythonTag == "" {
			return fmt.Errorf("%w: project %q has no python_tag", ErrInvalidConfig, p.Name)
		}
		for _, tool := range p.Tools {
			if tool == "" || strings.ContainsAny(tool, `/\`) {
				return fmt.Errorf("%w: project %q has invalid tool name %q", ErrInvalidConfig, p.Name, tool)
			}
		}
	}

	if c.VersionFile == "" {
		return fmt.Errorf("%w: version_file is required", ErrInvalidConfig)
	}
	if c.Snapshot.Port < 1 || c.Snapshot.Port > 65535 {
		return fmt.Errorf("%w: snapshot port %d out of range", ErrInvalidConfig, c.Snapshot.Port)
	}
	return nil
}

// VenvDir is the scratch virtual environment used for test installs.
func (c *Config) VenvDir() string {
	return filepath.Join(c.BuildDir, "venv")
}

// VenvBinDir holds the virtual environment's scripts and executables.
func (c *Config) VenvBinDir() string {
	return filepath.Join(c.VenvDir(), c.Platform.VenvBin())
}

// VenvTool returns the path of an executable installed into the virtual environment.
func (c *Config) VenvTool(name string) string {
	return filepath.Join(c.VenvBinDir(), name)
}

// ActivateScript is the path users source to enter the virtual environment.
func (c *Config) ActivateScript() string {
	return filepath.Join(c.VenvBinDir(), "activate")
}

// PyInstallerTemp is the freezing tool's work directory.
func (c *Config) PyInstallerTemp() string {
	return filepath.Join(c.BuildDir, "pyinstaller")
}

// PyInstallerDist is where frozen executables are written.
func (c *Config) PyInstallerDist() string {
	return filepath.Join(c.BuildDir, "binaries")
}

// SpecFile returns the freezing tool spec file for a tool.
func (c *Config) SpecFile(tool string) string {
	return filepath.Join(c.ReleaseDir, tool+".spec")
}

// ContributorsFile is regenerated from source control history.
func (c *Config) ContributorsFile() string {
	return filepath.Join(c.RootDir, ContributorsFileName)
}

// SecretsFile is the encrypted credentials store.
func (c *Config) SecretsFile() string {
	return filepath.Join(c.ReleaseDir, secretsDir, secretsFileName)
}

package version

// Build information of the rtool binary itself, set at build time via ldflags.
// Example: go build -ldflags "-X rtool/pkg/version.BuildVersion=v1.2.3".
//
//nolint:gochecknoglobals // These must be package-level vars for ldflags injection.
var (
	// BuildVersion is the semantic version (e.g., "v1.2.3" or "dev" for development builds).
	BuildVersion = "dev"

	// BuildCommit is the git commit SHA of the build.
	BuildCommit = "none"

	// BuildDate is the build date in ISO format.
	BuildDate = "unknown"
)

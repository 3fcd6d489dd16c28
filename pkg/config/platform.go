package config

import "runtime"

// Platform identifies a target platform by the tag used in binary archive names.
type Platform string

const (
	PlatformLinux   Platform = "linux"
	PlatformDarwin  Platform = "osx"
	PlatformWindows Platform = "win32"
)

// platformSpec captures everything that differs between target platforms.
type platformSpec struct {
	archiveExt string
	exeSuffix  string
	venvBin    string
}

//nolint:gochecknoglobals // Static lookup table.
var platforms = map[Platform]platformSpec{
	PlatformLinux:   {archiveExt: "tar.gz", venvBin: "bin"},
	PlatformDarwin:  {archiveExt: "tar.gz", venvBin: "bin"},
	PlatformWindows: {archiveExt: "zip", exeSuffix: ".exe", venvBin: "Scripts"},
}

// PlatformFor maps a GOOS value to a platform. Unknown systems keep their own name.
func PlatformFor(goos string) Platform {
	switch goos {
	case "linux":
		return PlatformLinux
	case "darwin":
		return PlatformDarwin
	case "windows":
		return PlatformWindows
	default:
		return Platform(goos)
	}
}

// DetectPlatform returns the platform of the running host.
func DetectPlatform() Platform {
	return PlatformFor(runtime.GOOS)
}

func (p Platform) spec() platformSpec {
	if s, ok := platforms[p]; ok {
		return s
	}
	return platformSpec{archiveExt: "tar.gz", venvBin: "bin"}
}

// Tag is the platform component of binary archive names.
func (p Platform) Tag() string { return string(p) }

// ArchiveExt is "zip" on Windows and "tar.gz" elsewhere.
func (p Platform) ArchiveExt() string { return p.spec().archiveExt }

// UsesZip reports whether binary archives are zip files.
func (p Platform) UsesZip() bool { return p.ArchiveExt() == "zip" }

// ExeSuffix is appended to frozen executable names.
func (p Platform) ExeSuffix() string { return p.spec().exeSuffix }

// VenvBin is the virtual environment's script directory name.
func (p Platform) VenvBin() string { return p.spec().venvBin }

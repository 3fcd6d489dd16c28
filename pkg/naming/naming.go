// Package naming derives the canonical file names of release artifacts.
// Every function is pure; the same names are used by the build and publish pipelines.
package naming

import (
	"fmt"
	"strings"

	"rtool/pkg/config"
)

// Kind identifies an artifact type.
type Kind string

const (
	KindSdist Kind = "sdist"
	KindWheel Kind = "wheel"
	KindBdist Kind = "bdist"
)

// SdistName returns "{project}-{version}.tar.gz".
func SdistName(project, version string) string {
	return fmt.Sprintf("%s-%s.tar.gz", project, version)
}

// WheelName returns "{project}-{version}-{pythonTag}-none-any.whl".
func WheelName(project, version, pythonTag string) string {
	return fmt.Sprintf("%s-%s-%s-none-any.whl", project, version, pythonTag)
}

// ArchiveName returns the binary archive name, "{project}-{version}-{platform}.{zip|tar.gz}".
func ArchiveName(project, version string, platform config.Platform) string {
	return fmt.Sprintf("%s-%s-%s.%s", project, version, platform.Tag(), platform.ArchiveExt())
}

// Name returns the artifact name of kind for a project.
func Name(kind Kind, project *config.Project, version string, platform config.Platform) (string, error) {
	switch kind {
	case KindSdist:
		return SdistName(project.Name, version), nil
	case KindWheel:
		return WheelName(project.Name, version, project.PythonTag), nil
	case KindBdist:
		return ArchiveName(project.Name, version, platform), nil
	default:
		return "", fmt.Errorf("unknown artifact kind %q", kind)
	}
}

// StalePattern turns an artifact name into a glob matching the same artifact of any version.
func StalePattern(name, version string) string {
	return strings.ReplaceAll(name, version, "*")
}

// LatestName is the name of the stable "latest" alias for an artifact.
func LatestName(name, version string) string {
	return strings.ReplaceAll(name, version, "latest")
}

// Rename substitutes the version inside an artifact name, e.g. for snapshot uploads.
func Rename(name, version, replacement string) string {
	return strings.ReplaceAll(name, version, replacement)
}

package config

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// versionTag reduces a runtime version to the compact major+minor form
// the embeddable distribution uses in file names: 3.9.2 -> "39".
func versionTag(version string) string {
	mm := strings.TrimPrefix(semver.MajorMinor("v"+version), "v")
	return strings.ReplaceAll(mm, ".", "")
}

// StdlibArchiveName returns the bundled stdlib archive name for a
// runtime version, e.g. "python39.zip" for 3.9.2.
func StdlibArchiveName(version string) string {
	return "python" + versionTag(version) + ".zip"
}

// SearchConfigName returns the module-search config file name for a
// runtime version, e.g. "python39._pth" for 3.9.2.
func SearchConfigName(version string) string {
	return "python" + versionTag(version) + "._pth"
}

// DefaultArchiveURL returns the python.org embeddable 64-bit Windows
// build URL for a runtime version.
func DefaultArchiveURL(version string) string {
	return fmt.Sprintf("https://www.python.org/ftp/python/%s/python-%s-embed-amd64.zip", version, version)
}

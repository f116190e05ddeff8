package version

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"
)

// Release metadata, stamped with -ldflags "-X" at release time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Info contains version information. It is recorded in every build index so a
// finished image can be traced back to the tool that produced it.
type Info struct {
	Version   string `json:"version" cbor:"version" yaml:"version"`
	Commit    string `json:"commit" cbor:"commit" yaml:"commit"`
	Date      string `json:"date" cbor:"date" yaml:"date"`
	Package   string `json:"package" cbor:"package" yaml:"package"`
	GoVersion string `json:"go_version" cbor:"go_version" yaml:"go_version"`
}

// GetVersion returns the stamped release, then the module version from go install,
// then "development".
func GetVersion() string {
	if Version != "dev" && Version != "" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			return info.Main.Version
		}
	}
	return "development"
}

// GetCommit returns the stamped commit or the vcs.revision the go tool embedded.
func GetCommit() string {
	if Commit != "unknown" && Commit != "" {
		return Commit
	}
	return buildSetting("vcs.revision")
}

// GetBuildDate returns the stamped date or the vcs.time the go tool embedded.
func GetBuildDate() string {
	if Date != "unknown" && Date != "" {
		return Date
	}
	return buildSetting("vcs.time")
}

// buildSetting looks key up in the binary's embedded build settings.
func buildSetting(key string) string {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == key {
				return setting.Value
			}
		}
	}
	return "unknown"
}

// GetInfo gathers everything above into one record.
func GetInfo() Info {
	return Info{
		Version:   GetVersion(),
		Commit:    GetCommit(),
		Date:      GetBuildDate(),
		Package:   "rootimg",
		GoVersion: runtime.Version(),
	}
}

// GetFullVersion appends the short commit, and the date when known, to the version.
func GetFullVersion() string {
	info := GetInfo()
	if info.Commit != "unknown" && len(info.Commit) > 7 {
		shortCommit := info.Commit[:7]
		if info.Date != "unknown" {
			return fmt.Sprintf("%s (%s, built %s)", info.Version, shortCommit, info.Date)
		}
		return fmt.Sprintf("%s (%s)", info.Version, shortCommit)
	}
	return info.Version
}

// PrintVersion writes version information for appName to w.
func PrintVersion(w io.Writer, appName string) {
	info := GetInfo()
	fmt.Fprintf(w, "%s version %s\n", appName, GetFullVersion())
	fmt.Fprintf(w, "Package: %s\n", info.Package)
	fmt.Fprintf(w, "Commit: %s\n", info.Commit)
	fmt.Fprintf(w, "Build Date: %s\n", info.Date)
	fmt.Fprintf(w, "Go: %s\n", info.GoVersion)
}

// Package version holds the build version, set with
//
//	go build -ldflags "-X github.com/ramonehamilton/draftlab/internal/version.Version=v0.3.0"
package version

// Version defaults to "dev" for local builds.
var Version = "dev"

// UserAgent identifies draftlab to upstream APIs.
func UserAgent() string {
	return "draftlab/" + Version
}

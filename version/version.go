package version

import "runtime/debug"

// You can set the version at build time using something like:
// go build -ldflags "-X github.com/vsariola/comper/version.Version=$(git describe --dirty)"

var Version string

// Hash is the short VCS revision of the build, suffixed with -dirty when the
// working tree had local changes.
var Hash = func() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	return vcsHash(info.Settings)
}()

var VersionOrHash = func() string {
	if Version != "" {
		return Version
	}
	return Hash
}()

func vcsHash(settings []debug.BuildSetting) string {
	modified, revision := false, ""
	for _, s := range settings {
		switch s.Key {
		case "vcs.modified":
			modified = s.Value == "true"
		case "vcs.revision":
			revision = s.Value
		}
	}
	if len(revision) > 7 {
		revision = revision[:7]
	}
	if revision != "" && modified {
		return revision + "-dirty"
	}
	return revision
}

package internal

import "runtime/debug"

// Set with -ldflags "-X github.com/sergds/dnschanger/internal.version=..." on release builds.
var version = ""

func Version() string {
	if version != "" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev"
}

package main

import "runtime/debug"

// Version is the version of the yaml2props CLI tool, set at build time via
// ldflags. Without it the module version recorded by go install is used.
var Version = getVersion()

func getVersion() string {
	if version != "" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev"
}

// version is set via ldflags: -X main.version=x.y.z
var version string

package version

import "runtime"

// Version is the semantic version of certd; overridden at build time with -ldflags.
var Version = "dev"

// Build is the VCS revision; may be empty.
var Build = ""

// BuildDate is the UTC RFC3339 build timestamp, injected at build time.
var BuildDate = ""

// String renders the version line printed by the binaries.
func String() string {
	v := Version
	if Build != "" {
		v += "+" + Build
	}
	return v + " (" + runtime.Version() + ")"
}

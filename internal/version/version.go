package version

// Version is the semantic version of the workbench binary. It is
// overridden at build time via -ldflags for release builds.
var Version = "0.3.0-dev"

// Package version provides the docforensic tool version.
package version

// Version is the docforensic tool version.
// Can be overridden at build time with:
//   go build -ldflags "-X github.com/docforensic/docforensic/pkg/version.Version=2.0.1"
var Version = "dev"

// Package version reports the gfnkit build that produced an archive.
//
// Version and git commit are set at compile time via -ldflags:
//
//	go build -ldflags "-X github.com/kbukum/gfnkit/version.Version=1.2.0"
//
// Otherwise they fall back to the module build information.
package version

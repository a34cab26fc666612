// Package buildinfo exposes build metadata for mulligan-cli.
//
// Version, Commit and BuildTime are injected with ldflags:
//
//	go build -ldflags "-X github.com/mulligan-golf/mulligan-go/internal/infra/buildinfo.Version=v1.2.0"
//
// When Commit is not injected it falls back to the VCS revision recorded by
// the Go toolchain, if any.
package buildinfo

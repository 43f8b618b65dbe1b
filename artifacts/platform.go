package artifacts

import (
	"fmt"
	"runtime"
)

// Platform is the host a master build is fetched for.
type Platform struct {
	OS   string
	Arch string
}

// HostPlatform describes the running process.
func HostPlatform() Platform {
	return Platform{OS: runtime.GOOS, Arch: runtime.GOARCH}
}

// masterArch names the directory holding master builds for p.
func (p Platform) masterArch() (string, error) {
	if p.OS != "linux" && p.OS != "darwin" {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedPlatform, p.OS)
	}

	arm := p.Arch == "arm64" || p.Arch == "aarch64"

	switch {
	case p.OS == "darwin" && arm:
		return "macos-aarch64", nil
	case p.OS == "darwin":
		return "macos", nil
	case arm:
		return "aarch64", nil
	default:
		return "amd64", nil
	}
}

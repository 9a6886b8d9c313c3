package platform

import (
	"context"
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v4/host"
)

// RealDetector implements Detector using gopsutil.
type RealDetector struct{}

// NewDetector creates a new platform detector.
func NewDetector() Detector {
	return &RealDetector{}
}

// Detect reports the host OS and architecture.
//
// The kernel architecture comes from gopsutil; when that probe fails the
// process GOARCH is used instead. OS product details are best effort and
// left empty when unavailable.
func (d *RealDetector) Detect(ctx context.Context) (*Info, error) {
	info := &Info{
		OS:      runtime.GOOS,
		ArchRaw: runtime.GOARCH,
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("platform detection cancelled: %w", err)
	}
	if kernelArch, err := host.KernelArch(); err == nil && kernelArch != "" {
		info.ArchRaw = kernelArch
	}

	arch, err := normalizeArch(info.ArchRaw)
	if err != nil {
		// Kernel spelling unknown; the process architecture is still meaningful.
		arch, err = normalizeArch(runtime.GOARCH)
		if err != nil {
			return nil, fmt.Errorf("platform detection failed: %w", err)
		}
	}
	info.Arch = arch

	platform, family, version, err := host.PlatformInformationWithContext(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("platform detection cancelled: %w", ctx.Err())
		}
		return info, nil
	}

	info.Platform = normalizePlatform(platform)
	info.Family = normalizePlatform(family)
	info.Version = normalizePlatform(version)

	return info, nil
}

package backend

import (
	"runtime"
	"sync"
)

// Platform is the operating environment the process runs in. It is detected
// once, process-wide, and never changes afterwards.
type Platform string

const (
	PlatformWindows Platform = "windows"
	PlatformLinux   Platform = "linux"
	PlatformMacOS   Platform = "macos"
	PlatformAndroid Platform = "android"
	PlatformIOS     Platform = "ios"
	PlatformWeb     Platform = "web"
)

var allPlatforms = []Platform{
	PlatformWindows,
	PlatformLinux,
	PlatformMacOS,
	PlatformAndroid,
	PlatformIOS,
	PlatformWeb,
}

var (
	detectOnce      sync.Once
	currentPlatform Platform
)

// CurrentPlatform detects and returns the platform the process is running
// on. The detection runs once; all later calls return the cached value.
func CurrentPlatform() Platform {
	detectOnce.Do(func() {
		currentPlatform = detectPlatform(runtime.GOOS)
	})
	return currentPlatform
}

func detectPlatform(goos string) Platform {
	switch goos {
	case "windows":
		return PlatformWindows
	case "darwin":
		return PlatformMacOS
	case "android":
		return PlatformAndroid
	case "ios":
		return PlatformIOS
	case "js", "wasip1":
		return PlatformWeb
	default:
		return PlatformLinux
	}
}

// Platforms returns every known platform.
func Platforms() []Platform {
	out := make([]Platform, len(allPlatforms))
	copy(out, allPlatforms)
	return out
}

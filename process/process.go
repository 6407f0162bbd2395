package process

import "runtime"

// Version is the application version reported to the UI. Release builds set
// it with -ldflags "-X github.com/noiddea/dash/process.Version=...".
var Version = "0.1.0"

// Platform returns the operating system name as the UI expects it. Darwin
// is reported as "macos".
func Platform() string {
	return platformName(runtime.GOOS)
}

func platformName(goos string) string {
	if goos == "darwin" {
		return "macos"
	}
	return goos
}

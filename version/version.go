// Package version carries build metadata injected with -ldflags.
package version

import (
	"fmt"
	"runtime"
)

var (
	NAME     = "vpsbot"
	VERSION  = "unknown"
	REVISION = "HEAD"
	BUILTAT  = "now"
)

// String renders the version block printed by `vpsbot version`.
func String() string {
	return fmt.Sprintf(`Version:        %s
Git hash:       %s
Built:          %s
Golang version: %s
OS/Arch:        %s/%s
`, VERSION, REVISION, BUILTAT, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

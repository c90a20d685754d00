//go:build !linux && !windows

package main

import (
	"fmt"
	"runtime"

	"checkpstree/process"
)

func liveSource() (process.RecordSource, error) {
	return nil, fmt.Errorf("no live process source on %s, use --snapshot", runtime.GOOS)
}

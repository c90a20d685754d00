package main

import (
	"checkpstree/process"
	"checkpstree/process_windows"
)

func liveSource() (process.RecordSource, error) {
	return process_windows.NewProcessFinder(), nil
}

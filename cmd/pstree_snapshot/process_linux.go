package main

import (
	"checkpstree/process"
	"checkpstree/process_linux"
)

func liveSource() (process.RecordSource, error) {
	return process_linux.NewProcessFinder(), nil
}

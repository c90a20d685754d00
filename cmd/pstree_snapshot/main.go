package main

import (
	"fmt"
	"os"

	"checkpstree/snapshot"

	"github.com/spf13/pflag"
)

func main() {
	outputFlag := pflag.StringP("output", "o", "", "File to write the snapshot to")
	helpFlag := pflag.BoolP("help", "h", false, "Show this help message")
	pflag.Parse()

	if *helpFlag {
		pflag.Usage()
		return
	}

	if *outputFlag == "" {
		fmt.Fprintln(os.Stderr, "Error: --output is required")
		pflag.Usage()
		os.Exit(2)
	}

	src, err := liveSource()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	snap, err := snapshot.Capture(src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error capturing processes: %v\n", err)
		os.Exit(1)
	}

	if err := snapshot.Save(*outputFlag, snap); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving snapshot: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Saved %d processes from %s to %s\n", len(snap.Records), snap.Host, *outputFlag)
}

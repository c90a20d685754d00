package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"checkpstree/checkconfig"
	"checkpstree/process"
	"checkpstree/pstree"
	"checkpstree/render"
	"checkpstree/rules"
	"checkpstree/snapshot"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"github.com/spf13/pflag"
)

const (
	exitOK = iota
	exitError
	exitUsage
	exitFailed
)

type output struct {
	PSTree      *pstree.Forest   `json:"pstree"`
	Check       rules.Report     `json:"check"`
	Diagnostics []pstree.Anomaly `json:"diagnostics,omitempty"`
}

func main() {
	os.Exit(run())
}

func run() int {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: checkpstree [options]\n\n")
		fmt.Fprintf(os.Stderr, "checkpstree rebuilds the process tree and checks it against a rule file.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  checkpstree -c rules.json                 # Check the live process table\n")
		fmt.Fprintf(os.Stderr, "  checkpstree --profile Win7SP1x64 -s s.json # Check a saved snapshot\n")
		fmt.Fprintf(os.Stderr, "  checkpstree -c rules.yaml -j              # Output tree and report as JSON\n")
	}

	configFlag := pflag.StringP("config", "c", "", "Full path to the rule file")
	pluginsFlag := pflag.String("plugins-dir", "plugins", "Directory holding checkpstree_configs/<profile>.json")
	profileFlag := pflag.String("profile", "", "Profile whose rule file is used when --config is not given")
	snapshotFlag := pflag.StringP("snapshot", "s", "", "Check a saved snapshot instead of the live process table")
	jsonFlag := pflag.BoolP("json", "j", false, "Output tree and report as JSON")
	noColorFlag := pflag.Bool("no-color", false, "Disable coloured output")
	diagFlag := pflag.BoolP("diagnostics", "d", false, "Also report duplicate pids, self parents, cycles and orphans")
	verboseFlag := pflag.BoolP("verbose", "v", false, "Log whether each process has a PEB")
	helpFlag := pflag.BoolP("help", "h", false, "Show this help message")
	pflag.Parse()

	if *helpFlag {
		pflag.Usage()
		return exitOK
	}

	if pflag.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "Error: unexpected arguments: %v\n", pflag.Args())
		pflag.Usage()
		return exitUsage
	}

	if *configFlag == "" && *profileFlag == "" {
		fmt.Fprintln(os.Stderr, "Error: --config or --profile is required")
		pflag.Usage()
		return exitUsage
	}

	log := logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "checkpstree"))

	cfgPath := checkconfig.ResolvePath(*configFlag, *pluginsFlag, *profileFlag)
	cfg, err := checkconfig.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitError
	}
	log.Infoln("Loaded rules from", cfgPath, cfg.Kinds())

	src, err := recordSource(*snapshotFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitError
	}

	records, err := src.FindAllProcesses()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error collecting processes: %v\n", err)
		return exitError
	}

	if *verboseFlag {
		for _, rec := range records {
			if rec.HasPEB() {
				log.Infoln(rec.PID, rec.Name, "has PEB")
			} else {
				log.Infoln(rec.PID, rec.Name, "has no PEB")
			}
		}
	}

	forest := pstree.Build(records)

	report, err := rules.NewEngine().Check(forest, cfg)
	if err != nil {
		var ruleErr *rules.RuleError
		if errors.As(err, &ruleErr) {
			fmt.Fprintf(os.Stderr, "Error: rule %s cannot evaluate pid %d (%s): %v\n", ruleErr.Rule, ruleErr.PID, ruleErr.Name, ruleErr.Err)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return exitError
	}

	var anomalies []pstree.Anomaly
	if *diagFlag {
		anomalies = pstree.Diagnose(records)
		for _, a := range anomalies {
			log.Warn(a.String())
		}
	}

	if *jsonFlag {
		err = writeJSON(os.Stdout, output{PSTree: forest, Check: report, Diagnostics: anomalies})
	} else {
		err = writeText(os.Stdout, forest, report, anomalies, render.Options{Plain: *noColorFlag})
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		return exitError
	}

	if failed := report.Failed(); failed > 0 {
		log.Warn(fmt.Sprintf("%d checks failed", failed))
		return exitFailed
	}
	return exitOK
}

func recordSource(snapshotPath string) (process.RecordSource, error) {
	if snapshotPath == "" {
		return liveSource()
	}
	snap, err := snapshot.Load(snapshotPath)
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func writeJSON(w io.Writer, out output) error {
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func writeText(w io.Writer, forest *pstree.Forest, report rules.Report, anomalies []pstree.Anomaly, opts render.Options) error {
	if err := render.Analysis(w, forest, report, opts); err != nil {
		return err
	}
	return render.Diagnostics(w, anomalies, opts)
}

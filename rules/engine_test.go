package rules

import (
	"encoding/json"
	"errors"
	"testing"

	"checkpstree/process"
	"checkpstree/pstree"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(pid, ppid int, name string) process.ProcessRecord {
	return process.ProcessRecord{PID: process.ProcessID(pid), PPID: process.ProcessID(ppid), Name: name}
}

func withPaths(r process.ProcessRecord, fullname, vadFile string) process.ProcessRecord {
	r.PEB = process.NewPEB("", fullname)
	r.VAD = process.FoundVAD(vadFile, 0x7ff6a0000000, 0x1000, "PAGE_EXECUTE_WRITECOPY", "Vad ")
	return r
}

func snapshot() *pstree.Forest {
	return pstree.Build([]process.ProcessRecord{
		rec(4, 0, "System"),
		rec(300, 200, "wininit.exe"),
		rec(400, 300, "services.exe"),
		withPaths(rec(500, 400, "svchost.exe"), `C:\Windows\System32\svchost.exe`, `\Windows\System32\svchost.exe`),
		rec(600, 400, "lsass.exe"),
		rec(700, 650, "winlogon.exe"),
		withPaths(rec(800, 700, "svchost.exe"), `C:\Windows\Temp\svchost.exe`, `\Windows\Temp\svchost.exe`),
		rec(900, 4, "lsass.exe"),
	})
}

func TestCheck_SelectiveReporting(t *testing.T) {
	report, err := Check(snapshot(), &Config{UniqueNames: []string{"lsass.exe"}})
	require.NoError(t, err)

	assert.Equal(t, []RuleKind{UniqueNames}, report.Kinds())
	_, ok := report[ReferenceParents]
	assert.False(t, ok)
	_, ok = report[PebFullname]
	assert.False(t, ok)
	_, ok = report[VadFilename]
	assert.False(t, ok)
}

func TestCheck_EmptyButPresentKindsAreReported(t *testing.T) {
	cfg := &Config{
		UniqueNames:      []string{},
		ReferenceParents: map[string]string{},
		PebFullname:      map[string]string{},
		VadFilename:      map[string]string{},
	}
	report, err := Check(snapshot(), cfg)
	require.NoError(t, err)

	assert.Equal(t, AllKinds, report.Kinds())
	for _, kind := range AllKinds {
		assert.Equal(t, 0, report[kind].Len(), kind)
	}

	data, err := json.Marshal(report)
	require.NoError(t, err)
	assert.JSONEq(t, `{"unique_names":[],"reference_parents":[],"peb_fullname":[],"vad_filename":[]}`, string(data))
}

func TestCheck_NilConfig(t *testing.T) {
	report, err := Check(snapshot(), nil)
	require.NoError(t, err)
	assert.Empty(t, report)
}

func TestCheck_UniqueNames(t *testing.T) {
	report, err := Check(snapshot(), &Config{UniqueNames: []string{"lsass.exe", "csrss.exe", "services.exe"}})
	require.NoError(t, err)

	assert.Equal(t, UniqueNameResults{
		{Name: "lsass.exe", Count: 2, Pass: false},
		{Name: "csrss.exe", Count: 0, Pass: true},
		{Name: "services.exe", Count: 1, Pass: true},
	}, report.UniqueNames())
	assert.Equal(t, 1, report.Failed())
}

func TestCheck_ReferenceParents(t *testing.T) {
	cfg := &Config{ReferenceParents: map[string]string{
		"svchost.exe":  "services.exe",
		"wininit.exe":  "smss.exe",
		"winlogon.exe": "smss.exe",
	}}
	report, err := Check(snapshot(), cfg)
	require.NoError(t, err)

	// wininit.exe and winlogon.exe are roots and never checked
	assert.Equal(t, ReferenceParentResults{
		{PID: 500, PPID: 400, Name: "svchost.exe", Parent: "services.exe", Expected: "services.exe", Pass: true},
		{PID: 800, PPID: 700, Name: "svchost.exe", Parent: "winlogon.exe", Expected: "services.exe", Pass: false},
	}, report.ReferenceParents())
}

func TestCheck_ReferenceParentUsesForestParent(t *testing.T) {
	// two records claim pid 10; the child hangs under the first one
	forest := pstree.Build([]process.ProcessRecord{
		rec(1, 0, "root"),
		rec(10, 1, "services.exe"),
		rec(10, 1, "explorer.exe"),
		rec(20, 10, "svchost.exe"),
	})

	report, err := Check(forest, &Config{ReferenceParents: map[string]string{"svchost.exe": "services.exe"}})
	require.NoError(t, err)
	require.Len(t, report.ReferenceParents(), 1)
	assert.True(t, report.ReferenceParents()[0].Pass)
}

func TestCheck_PebFullnameIgnoresCase(t *testing.T) {
	cfg := &Config{PebFullname: map[string]string{
		"svchost.exe": `c:\windows\system32\SVCHOST.EXE`,
	}}
	report, err := Check(snapshot(), cfg)
	require.NoError(t, err)

	got := report.Paths(PebFullname)
	require.Len(t, got, 2)
	assert.Equal(t, process.ProcessID(500), got[0].PID)
	assert.Equal(t, `C:\Windows\System32\svchost.exe`, got[0].Path)
	assert.True(t, got[0].Pass)
	assert.Equal(t, process.ProcessID(800), got[1].PID)
	assert.False(t, got[1].Pass)
	assert.Equal(t, PebFullname, report[PebFullname].Kind())
}

func TestCheck_VadFilenameIsCaseSensitive(t *testing.T) {
	report, err := Check(snapshot(), &Config{VadFilename: map[string]string{
		"svchost.exe": `\windows\system32\svchost.exe`,
	}})
	require.NoError(t, err)

	got := report.Paths(VadFilename)
	require.Len(t, got, 2)
	assert.False(t, got[0].Pass)
	assert.False(t, got[1].Pass)
	assert.Equal(t, process.VadFound, got[0].VadState)

	report, err = Check(snapshot(), &Config{VadFilename: map[string]string{
		"svchost.exe": `\Windows\System32\svchost.exe`,
	}})
	require.NoError(t, err)
	got = report.Paths(VadFilename)
	assert.True(t, got[0].Pass)
	assert.False(t, got[1].Pass)
}

func TestCheck_PathRulesOrderByName(t *testing.T) {
	forest := pstree.Build([]process.ProcessRecord{
		withPaths(rec(1, 0, "b.exe"), `C:\b.exe`, `\b.exe`),
		withPaths(rec(2, 0, "a.exe"), `C:\a.exe`, `\a.exe`),
	})

	report, err := Check(forest, &Config{PebFullname: map[string]string{"b.exe": `C:\b.exe`, "a.exe": `C:\a.exe`}})
	require.NoError(t, err)

	got := report.Paths(PebFullname)
	require.Len(t, got, 2)
	assert.Equal(t, "a.exe", got[0].Name)
	assert.Equal(t, "b.exe", got[1].Name)
}

func TestCheck_PebMissingFailsLoudly(t *testing.T) {
	// neither lsass.exe has a PEB, the first in walk order is pid 900
	_, err := Check(snapshot(), &Config{
		UniqueNames: []string{"lsass.exe"},
		PebFullname: map[string]string{"lsass.exe": `C:\Windows\System32\lsass.exe`},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingMetadata))

	var ruleErr *RuleError
	require.True(t, errors.As(err, &ruleErr))
	assert.Equal(t, PebFullname, ruleErr.Rule)
	assert.Equal(t, process.ProcessID(900), ruleErr.PID)
	assert.Equal(t, "lsass.exe", ruleErr.Name)
	assert.Contains(t, err.Error(), "peb_fullname")
}

func TestCheck_PebWithoutModuleNameFails(t *testing.T) {
	r := rec(10, 0, "smss.exe")
	r.PEB = process.NewPEB("smss.exe", "")
	forest := pstree.Build([]process.ProcessRecord{r})

	_, err := Check(forest, &Config{PebFullname: map[string]string{"smss.exe": `C:\Windows\System32\smss.exe`}})
	assert.ErrorIs(t, err, ErrMissingMetadata)
}

func TestCheck_VadMissingBlockFails(t *testing.T) {
	_, err := Check(snapshot(), &Config{VadFilename: map[string]string{"lsass.exe": `\Windows\System32\lsass.exe`}})

	var ruleErr *RuleError
	require.True(t, errors.As(err, &ruleErr))
	assert.Equal(t, VadFilename, ruleErr.Rule)
	assert.ErrorIs(t, err, ErrMissingMetadata)
}

func TestCheck_VadSentinelStatesCompareAsSentinels(t *testing.T) {
	noPeb := rec(4, 0, "System")
	noPeb.VAD = process.NoPEBVAD()
	notFound := rec(10, 4, "smss.exe")
	notFound.PEB = process.NewPEB("", `C:\Windows\System32\smss.exe`)
	notFound.VAD = process.NotFoundVAD()
	forest := pstree.Build([]process.ProcessRecord{noPeb, notFound})

	report, err := Check(forest, &Config{VadFilename: map[string]string{
		"System":   process.NoVADSentinel,
		"smss.exe": `\Windows\System32\smss.exe`,
	}})
	require.NoError(t, err)

	got := report.Paths(VadFilename)
	require.Len(t, got, 2)
	assert.Equal(t, "System", got[0].Name)
	assert.Equal(t, "<No VAD>", got[0].Path)
	assert.Equal(t, process.VadNoPEB, got[0].VadState)
	assert.True(t, got[0].Pass)

	assert.Equal(t, "NA", got[1].Path)
	assert.Equal(t, process.VadNotFound, got[1].VadState)
	assert.False(t, got[1].Pass)
}

func TestCheck_NamesAbsentFromForestYieldNothing(t *testing.T) {
	report, err := Check(snapshot(), &Config{
		PebFullname: map[string]string{"nothere.exe": `C:\x`},
		VadFilename: map[string]string{"nothere.exe": `\x`},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, report[PebFullname].Len())
	assert.Equal(t, 0, report[VadFilename].Len())
	assert.Equal(t, 0, report.Failed())
}

func TestConfig_Kinds(t *testing.T) {
	var nilCfg *Config
	assert.Empty(t, nilCfg.Kinds())

	cfg := &Config{VadFilename: map[string]string{}, UniqueNames: []string{"a"}}
	assert.Equal(t, []RuleKind{UniqueNames, VadFilename}, cfg.Kinds())
	assert.True(t, cfg.Has(VadFilename))
	assert.False(t, cfg.Has(PebFullname))
	assert.False(t, cfg.Has(RuleKind("bogus")))
}

//go:build linux

package process_linux

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"checkpstree/process"
	"checkpstree/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"golang.org/x/sys/unix"
)

// LinuxProcessFinder implements process.RecordSource over /proc
type LinuxProcessFinder struct {
	log      *logger.Logger
	mm       *memory_map.LinuxMemoryMap
	bootTime time.Time
	root     string
}

// NewProcessFinder creates a new LinuxProcessFinder
func NewProcessFinder() *LinuxProcessFinder {
	f := &LinuxProcessFinder{
		log:  logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "procfs")),
		mm:   memory_map.NewLinuxMemoryMap(),
		root: "/proc",
	}

	boot, err := bootTime()
	if err != nil {
		f.log.Warn("Failed to read boot time, create times left empty: ", err)
	} else {
		f.bootTime = boot
	}

	return f
}

// bootTime derives the boot instant from the kernel's uptime
func bootTime() (time.Time, error) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return time.Time{}, fmt.Errorf("sysinfo: %w", err)
	}
	return time.Now().Add(-time.Duration(int64(info.Uptime)) * time.Second), nil
}

// FindAllProcesses returns a record for every pid under /proc, sorted by pid.
// Processes that exit while being read are skipped.
func (f *LinuxProcessFinder) FindAllProcesses() ([]process.ProcessRecord, error) {
	entries, err := os.ReadDir(f.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", f.root, err)
	}

	var pids []int
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		pid, err := strconv.Atoi(entry.Name())
		if err != nil || pid <= 0 {
			// Not a PID directory
			continue
		}
		pids = append(pids, pid)
	}
	sort.Ints(pids)

	records := make([]process.ProcessRecord, 0, len(pids))
	for _, pid := range pids {
		rec, err := f.FindProcessByPID(process.ProcessID(pid))
		if err != nil {
			f.log.Debugln("Skipping pid", pid, err)
			continue
		}
		records = append(records, *rec)
	}

	f.log.Infoln("Collected", len(records), "processes")
	return records, nil
}

// FindProcessByPID reads the record of a single process
func (f *LinuxProcessFinder) FindProcessByPID(pid process.ProcessID) (*process.ProcessRecord, error) {
	procPath := filepath.Join(f.root, strconv.Itoa(int(pid)))

	statBytes, err := os.ReadFile(filepath.Join(procPath, "stat"))
	if err != nil {
		if !procExists(f.root, int(pid)) {
			return nil, fmt.Errorf("pid %d: %w", pid, process.ErrNoSuchProcess)
		}
		return nil, fmt.Errorf("failed to read process stat: %w", err)
	}
	st, err := parseStat(statBytes)
	if err != nil {
		return nil, fmt.Errorf("pid %d: %w", pid, err)
	}

	// Read process name from /proc/<pid>/comm, stat's copy is the fallback
	name := st.Comm
	if nameBytes, err := os.ReadFile(filepath.Join(procPath, "comm")); err == nil {
		name = string(bytesTrimNL(nameBytes))
	}

	rec := &process.ProcessRecord{
		PID:        pid,
		PPID:       process.ProcessID(st.PPID),
		Name:       name,
		CreateTime: startTimeString(f.bootTime, st.StartTime),
	}

	// Kernel threads and processes we may not inspect have no exe link;
	// they are the processes without an environment block.
	exe, err := os.Readlink(filepath.Join(procPath, "exe"))
	if err != nil || exe == "" {
		f.log.Debugln(pid, name, "has no PEB")
		rec.VAD = process.NoPEBVAD()
		return rec, nil
	}
	exe = strings.TrimSuffix(exe, " (deleted)")
	f.log.Debugln(pid, name, "has PEB")

	cmdline := ""
	if cmdlineBytes, err := os.ReadFile(filepath.Join(procPath, "cmdline")); err == nil {
		cmdline = parseCmdline(cmdlineBytes)
	}

	mm, err := f.mm.ReadMemoryMap(int(pid))
	if err != nil {
		f.log.Debugln("Failed to read memory map of", pid, err)
		mm = nil
	}

	base := imageBase(mm, st.StartCode)
	rec.PEB = buildPEB(cmdline, exe, mm, base)
	rec.VAD = selectImageRegion(mm, exe, base, func(item memory_map.MemoryMapItem) bool {
		return f.hasImageHeader(pid, item)
	})
	if rec.VAD.IsFound() {
		f.log.Debugln("VAD", rec.VAD.Filename)
	}

	return rec, nil
}

// hasImageHeader reads the first bytes of a region from the live process.
// Without ptrace rights the read fails; a mapping of file offset 0 is then
// taken as the header.
func (f *LinuxProcessFinder) hasImageHeader(pid process.ProcessID, item memory_map.MemoryMapItem) bool {
	if !item.IsReadable() {
		return item.Offset == 0
	}
	header, err := process_vm_readv(pid, nil, 4, process.ProcessMemoryAddress(item.Address), 4)
	if err != nil {
		return item.Offset == 0
	}
	return isImageHeader(header)
}

func procExists(root string, pid int) bool {
	// Fast path: stat /proc/<pid>
	_, err := os.Stat(filepath.Join(root, strconv.Itoa(pid)))
	if err == nil {
		return true
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false
	}
	// For transient errors (permission, EIO): fall back to kill 0
	return unix.Kill(pid, 0) == nil
}

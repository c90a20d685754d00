//go:build windows

package process_windows

import (
	"errors"
	"fmt"
	"time"
	"unsafe"

	"checkpstree/process"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"golang.org/x/sys/windows"
)

const createTimeLayout = "2006-01-02 15:04:05 UTC+0000"

// WindowsProcessFinder implements process.RecordSource with a toolhelp32 snapshot
type WindowsProcessFinder struct {
	log *logger.Logger
}

// NewProcessFinder creates a new WindowsProcessFinder
func NewProcessFinder() *WindowsProcessFinder {
	return &WindowsProcessFinder{
		log: logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "toolhelp")),
	}
}

// FindAllProcesses walks a process snapshot in the order the kernel returns it
func (f *WindowsProcessFinder) FindAllProcesses() ([]process.ProcessRecord, error) {
	snapshot, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return nil, fmt.Errorf("CreateToolhelp32Snapshot failed: %w", err)
	}
	defer windows.CloseHandle(snapshot)

	var entry windows.ProcessEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))

	if err := windows.Process32First(snapshot, &entry); err != nil {
		return nil, fmt.Errorf("Process32First failed: %w", err)
	}

	var records []process.ProcessRecord
	for {
		records = append(records, f.record(&entry))

		err := windows.Process32Next(snapshot, &entry)
		if errors.Is(err, windows.ERROR_NO_MORE_FILES) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("Process32Next failed: %w", err)
		}
	}

	f.log.Infoln("Collected", len(records), "processes")
	return records, nil
}

func (f *WindowsProcessFinder) record(entry *windows.ProcessEntry32) process.ProcessRecord {
	rec := process.ProcessRecord{
		PID:  process.ProcessID(entry.ProcessID),
		PPID: process.ProcessID(entry.ParentProcessID),
		Name: windows.UTF16ToString(entry.ExeFile[:]),
	}

	handle, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, entry.ProcessID)
	if err != nil {
		// System, Idle and protected processes
		f.log.Debugln(rec.PID, rec.Name, "has no PEB:", err)
		rec.VAD = process.NoPEBVAD()
		return rec
	}
	defer windows.CloseHandle(handle)

	rec.CreateTime = creationTime(handle)

	fullName, err := imagePath(handle)
	if err != nil {
		f.log.Debugln(rec.PID, rec.Name, "has no PEB:", err)
		rec.VAD = process.NoPEBVAD()
		return rec
	}

	f.log.Debugln(rec.PID, rec.Name, "has PEB")
	rec.PEB = process.NewPEB("", fullName)
	// mapped regions are not walked from user mode
	rec.VAD = process.NotFoundVAD()
	return rec
}

func imagePath(handle windows.Handle) (string, error) {
	buf := make([]uint16, windows.MAX_LONG_PATH)
	size := uint32(len(buf))
	if err := windows.QueryFullProcessImageName(handle, 0, &buf[0], &size); err != nil {
		return "", fmt.Errorf("QueryFullProcessImageName failed: %w", err)
	}
	return windows.UTF16ToString(buf[:size]), nil
}

func creationTime(handle windows.Handle) string {
	var created, exited, kernel, user windows.Filetime
	if err := windows.GetProcessTimes(handle, &created, &exited, &kernel, &user); err != nil {
		return ""
	}
	return time.Unix(0, created.Nanoseconds()).UTC().Format(createTimeLayout)
}

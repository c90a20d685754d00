package process_linux

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// procStat holds the /proc/[pid]/stat fields the finder uses
type procStat struct {
	Comm      string
	PPID      int
	StartTime uint64 // clock ticks after boot
	StartCode uint64 // address above which program text can run
}

// parseStat parses /proc/[pid]/stat. comm sits in parentheses and may itself
// contain spaces and parentheses, so fields are counted from the last ')'.
func parseStat(data []byte) (*procStat, error) {
	open := bytes.IndexByte(data, '(')
	closing := bytes.LastIndexByte(data, ')')
	if open < 0 || closing < open {
		return nil, fmt.Errorf("malformed stat: missing comm")
	}

	st := &procStat{Comm: string(data[open+1 : closing])}

	// fields after comm start at field 3 (state)
	rest := strings.Fields(string(data[closing+1:]))
	const (
		ppidIdx      = 4 - 3
		startTimeIdx = 22 - 3
		startCodeIdx = 26 - 3
	)
	if len(rest) <= startTimeIdx {
		return nil, fmt.Errorf("malformed stat: %d fields after comm", len(rest))
	}

	ppid, err := strconv.Atoi(rest[ppidIdx])
	if err != nil {
		return nil, fmt.Errorf("malformed stat ppid: %w", err)
	}
	st.PPID = ppid

	startTime, err := strconv.ParseUint(rest[startTimeIdx], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed stat starttime: %w", err)
	}
	st.StartTime = startTime

	if len(rest) > startCodeIdx {
		// kernel threads and hidepid setups report 0 or 1 here, not an error
		if startCode, err := strconv.ParseUint(rest[startCodeIdx], 10, 64); err == nil {
			st.StartCode = startCode
		}
	}

	return st, nil
}

// parseCmdline joins the NUL separated arguments of /proc/[pid]/cmdline with spaces
func parseCmdline(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	// Remove the trailing NULL byte
	if data[len(data)-1] == 0 {
		data = data[:len(data)-1]
	}

	var args []string
	for _, arg := range bytes.Split(data, []byte{0}) {
		args = append(args, string(arg))
	}
	return strings.Join(args, " ")
}

// clockTicks is USER_HZ, fixed at 100 on every architecture Linux exposes to userspace
const clockTicks = 100

// startTimeString turns a stat start time into the timestamp layout used in records
func startTimeString(boot time.Time, ticks uint64) string {
	if boot.IsZero() {
		return ""
	}
	started := boot.Add(time.Duration(ticks/clockTicks)*time.Second + time.Duration(ticks%clockTicks)*(time.Second/clockTicks))
	return started.UTC().Format(createTimeLayout)
}

const createTimeLayout = "2006-01-02 15:04:05 UTC+0000"

func bytesTrimNL(b []byte) []byte {
	// Trim trailing '\n' if present (comm has a newline).
	for len(b) > 0 {
		switch b[len(b)-1] {
		case '\n', '\r', ' ', '\t':
			b = b[:len(b)-1]
		default:
			return b
		}
	}
	return b
}

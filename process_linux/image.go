package process_linux

import (
	"bytes"

	"checkpstree/process"
	"checkpstree/process/memory_map"
)

var (
	elfMagic = []byte{0x7f, 'E', 'L', 'F'}
	mzMagic  = []byte{'M', 'Z'}
)

// isImageHeader accepts ELF images and PE images mapped by wine
func isImageHeader(b []byte) bool {
	return bytes.HasPrefix(b, elfMagic) || bytes.HasPrefix(b, mzMagic)
}

// headerFunc reports whether a region starts with a loaded image header
type headerFunc func(item memory_map.MemoryMapItem) bool

// imageBase is the start of the region holding the program text, 0 when unknown
func imageBase(mm []memory_map.MemoryMapItem, startCode uint64) process.ProcessMemoryAddress {
	if startCode <= 1 {
		return 0
	}
	if region := memory_map.FindRegion(startCode, mm); region != nil {
		return process.ProcessMemoryAddress(region.Address)
	}
	return 0
}

// buildPEB fills the module fields from the regions backed by the executable
func buildPEB(cmdline, exe string, mm []memory_map.MemoryMapItem, base process.ProcessMemoryAddress) *process.PEB {
	peb := process.NewPEB(cmdline, exe)
	peb.ImageBaseAddress = base

	regions := memory_map.RegionsForPath(exe, mm)
	if len(regions) > 0 {
		first := regions[0]
		last := regions[len(regions)-1]
		peb.ModuleBaseAddress = process.ProcessMemoryAddress(first.Address)
		peb.ModuleSize = process.ProcessMemorySize(last.Address + uint64(last.Size) - first.Address)
	}
	return peb
}

// selectImageRegion walks the file backed regions in address order and
// returns the first that starts with an image header and is either mapped
// from the executable or sits at the image base.
func selectImageRegion(mm []memory_map.MemoryMapItem, exe string, base process.ProcessMemoryAddress, hasHeader headerFunc) *process.VAD {
	for _, item := range mm {
		if !item.IsFileBacked() {
			continue
		}
		if !hasHeader(item) {
			continue
		}
		if item.Path == exe || (base != 0 && process.ProcessMemoryAddress(item.Address) == base) {
			return process.FoundVAD(
				item.Path,
				process.ProcessMemoryAddress(item.Address),
				process.ProcessMemorySize(item.Size),
				item.Perms,
				"",
			)
		}
	}
	return process.NotFoundVAD()
}

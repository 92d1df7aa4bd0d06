//go:build windows

package ansi

import (
	"os"

	"golang.org/x/sys/windows"
)

const enableVirtualTerminalProcessing = 0x0004

// EnableANSI turns on virtual terminal processing for stdout and stderr so
// colored table output renders in cmd.exe and PowerShell.
func EnableANSI() {
	for _, f := range []*os.File{os.Stdout, os.Stderr} {
		handle := windows.Handle(f.Fd())

		var mode uint32
		if err := windows.GetConsoleMode(handle, &mode); err != nil {
			continue
		}

		_ = windows.SetConsoleMode(handle, mode|enableVirtualTerminalProcessing)
	}
}

//go:build windows

package console

import (
	"os"

	"golang.org/x/sys/windows"
)

const backgroundBlue = 0x0010

// IsBlueBackground reports whether the console behind stdout paints a blue
// background, as the default PowerShell window does.
func IsBlueBackground() bool {
	var info windows.ConsoleScreenBufferInfo
	if err := windows.GetConsoleScreenBufferInfo(windows.Handle(os.Stdout.Fd()), &info); err != nil {
		return false
	}
	return blueAttributes(info.Attributes)
}

func blueAttributes(attrs uint16) bool {
	return attrs&backgroundBlue != 0
}

// Package banner prints the aws-posture title block.
package banner

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/thirukguru/aws-posture/shared/ansi"
	"github.com/thirukguru/aws-posture/shared/console"
	"golang.org/x/term"
)

const (
	colorEnv     = "AWS_POSTURE_BANNER_COLOR"
	defaultColor = "AmazonOrange"
	onBlueColor  = "AmazonOrange"
	resetColor   = "\x1b[0m"
	defaultWidth = 80
)

var palette = map[string]string{
	"AmazonOrange":  "\x1b[38;2;255;153;0m",
	"SquidInk":      "\x1b[38;2;35;47;62m",
	"AlertRed":      "\x1b[38;2;228;0;43m",
	"SignalYellow":  "\x1b[38;2;255;204;0m",
	"ConsoleBlue":   "\x1b[38;2;0;115;187m",
	"SafeGreen":     "\x1b[38;2;29;129;2m",
	"TerminalGreen": "\x1b[38;2;61;220;132m",
	"IndigoPurple":  "\x1b[38;2;95;39;205m",
}

var titleLines = []string{
	"  █████╗  ██╗    ██╗ ███████╗        ██████╗   ██████╗  ███████╗ ████████╗ ██╗   ██╗ ██████╗  ███████╗",
	" ██╔══██╗ ██║    ██║ ██╔════╝        ██╔══██╗ ██╔═══██╗ ██╔════╝ ╚══██╔══╝ ██║   ██║ ██╔══██╗ ██╔════╝",
	" ███████║ ██║ █╗ ██║ ███████╗ █████╗ ██████╔╝ ██║   ██║ ███████╗    ██║    ██║   ██║ ██████╔╝ █████╗  ",
	" ██╔══██║ ██║███╗██║ ╚════██║ ╚════╝ ██╔═══╝  ██║   ██║ ╚════██║    ██║    ██║   ██║ ██╔══██╗ ██╔══╝  ",
	" ██║  ██║ ╚███╔███╔╝ ███████║        ██║      ╚██████╔╝ ███████║    ██║    ╚██████╔╝ ██║  ██║ ███████╗",
	" ╚═╝  ╚═╝  ╚══╝╚══╝  ╚══════╝        ╚═╝       ╚═════╝  ╚══════╝    ╚═╝     ╚═════╝  ╚═╝  ╚═╝ ╚══════╝",
}

// DrawBannerTitle prints the title banner to stdout, centered to the terminal.
func DrawBannerTitle() {
	ansi.EnableANSI()

	width := defaultWidth
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		width = w
	}

	writeBanner(os.Stdout, titleColor(os.Getenv(colorEnv), console.IsBlueBackground()), width)
}

func writeBanner(w io.Writer, color string, width int) {
	fmt.Fprint(w, color)
	for _, line := range titleLines {
		if pad := (width - utf8.RuneCountInString(line)) / 2; pad > 0 {
			fmt.Fprint(w, strings.Repeat(" ", pad))
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprint(w, resetColor)
}

// titleColor resolves the escape sequence for the banner. The env value may be
// a palette name (case-insensitive) or a raw escape sequence from the palette.
func titleColor(env string, blueBackground bool) string {
	env = strings.TrimSpace(env)
	if env != "" {
		for name, seq := range palette {
			if strings.EqualFold(env, name) || env == seq {
				return seq
			}
		}
	}

	if blueBackground {
		return palette[onBlueColor]
	}

	return palette[defaultColor]
}

package output

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
	"golang.org/x/term"
)

var hundred = decimal.NewFromInt(100)

// Percent returns current/total as a percentage clamped to [0, 100]. An
// unknown or zero total counts as complete once anything is done.
func Percent(current, total int64) decimal.Decimal {
	if total <= 0 {
		if current > 0 {
			return hundred
		}
		return decimal.Zero
	}
	current = max(0, min(current, total))
	return decimal.NewFromInt(current).Mul(hundred).Div(decimal.NewFromInt(total))
}

func PrintProgressBar(current, total int64, width int) string {
	if width <= 0 {
		width = 30
	}
	percent := Percent(current, total)
	filled := int(percent.Mul(decimal.NewFromInt(int64(width))).Div(hundred).IntPart())
	filled = max(0, min(filled, width))
	bar := StyleSymbols["bullet"]
	bar += strings.Repeat(StyleSymbols["hline"], filled)
	bar += strings.Repeat(" ", width-filled)
	bar += StyleSymbols["bullet"]
	return debugStyle.Render(fmt.Sprintf("%s %s%% %s ", bar, percent.StringFixed(1), StyleSymbols["bullet"]))
}

// FormatTransfer renders "1.2 MB / 4.0 MB • 300 kB/s".
func FormatTransfer(downloaded, total int64, elapsed time.Duration) string {
	size := humanize.Bytes(uint64(max(0, downloaded)))
	if total >= 0 {
		size += " / " + humanize.Bytes(uint64(total))
	}
	return fmt.Sprintf("%s %s %s", size, StyleSymbols["bullet"], FormatSpeed(downloaded, elapsed))
}

func FormatSpeed(bytes int64, elapsed time.Duration) string {
	if elapsed <= 0 || bytes <= 0 {
		return "0 B/s"
	}
	bps := float64(bytes) / elapsed.Seconds()
	return humanize.Bytes(uint64(bps)) + "/s"
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func getTerminalHeight() int {
	_, height, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || height <= 0 {
		return 24
	}
	return height
}

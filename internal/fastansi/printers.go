package fastansi

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Like the rest of "fast"ansi, this is just a weird utility thing, to create these fancy multiline TUI statuses. BUT with minimal code.
// Line 0 is the one right above the cursor, higher numbers go further up.
// With color.NoColor set (not a terminal, NO_COLOR, --no-color) the escape codes are skipped
// and every status becomes a plain line.
type StatusPrinter struct {
	w        io.Writer
	maxlines int
	plain    bool
}

func NewStatusPrinter(w io.Writer) *StatusPrinter {
	return &StatusPrinter{w: w, plain: color.NoColor}
}

// Reserve prints the empty lines Status will draw into.
func (sp *StatusPrinter) Reserve(lines int) {
	if sp.plain {
		return
	}
	fmt.Fprint(sp.w, strings.Repeat("\n", lines))
}

func (sp *StatusPrinter) Status(height int, str ...any) {
	if sp.plain {
		fmt.Fprintln(sp.w, str...)
		return
	}
	if sp.maxlines < height {
		sp.maxlines = height
	}
	CR(sp.w)
	Up(sp.w, height+1)
	EraseLine(sp.w)
	fmt.Fprint(sp.w, str...)
	Down(sp.w, height+1)
	CR(sp.w)
}

func (sp *StatusPrinter) PushLines() {
	if sp.plain {
		return
	}
	fmt.Fprint(sp.w, strings.Repeat("\n", sp.maxlines+1))
	sp.maxlines = 0
}

// Bar renders a fixed width progress bar like "[#####-----]  50%".
func Bar(percent, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := percent * width / 100
	return fmt.Sprintf("[%s%s] %3d%%", strings.Repeat("#", filled), strings.Repeat("-", width-filled), percent)
}

// ProgressBar keeps one status line showing a Bar. Plain output prints one line per update.
type ProgressBar struct {
	sp    *StatusPrinter
	label string
	width int
}

func NewProgressBar(sp *StatusPrinter, label string) *ProgressBar {
	sp.Reserve(1)
	return &ProgressBar{sp: sp, label: label, width: 30}
}

func (pb *ProgressBar) Set(percent int) {
	pb.sp.Status(0, pb.label+" "+color.CyanString(Bar(percent, pb.width)))
}

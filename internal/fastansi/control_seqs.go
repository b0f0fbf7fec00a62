// "fast"ansi -- Thing that windows CMD.EXE does not support. (spoiler: because windows sucks)
package fastansi

import (
	"fmt"
	"io"
)

func Up(w io.Writer, lines int) {
	fmt.Fprintf(w, "\x1b[%dA", lines)
}

func Down(w io.Writer, lines int) {
	fmt.Fprintf(w, "\x1b[%dB", lines)
}

func EraseLine(w io.Writer) {
	fmt.Fprint(w, "\x1b[K")
}

func CR(w io.Writer) {
	fmt.Fprint(w, "\x1b[0E")
}

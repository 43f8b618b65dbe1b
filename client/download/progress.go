package download

import (
	"fmt"
	"io"
	"strings"
)

// progressWriter is an io.Writer, redrawing a fixed-width
// progress bar on the terminal after every chunk.
type progressWriter struct {
	w           io.Writer
	out         io.Writer
	transferred int64
	total       int64
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.w.Write(p)
	pw.transferred += int64(n)
	pw.draw()

	return n, err
}

// draw renders "\r[=====     ] 10%". total is always positive here.
func (pw *progressWriter) draw() {
	done := min(int(barWidth*pw.transferred/pw.total), barWidth)
	percent := int(100 * float64(pw.transferred) / float64(pw.total))

	fmt.Fprintf(pw.out, "\r[%s%s] %d%%", strings.Repeat("=", done), strings.Repeat(" ", barWidth-done), percent)
}

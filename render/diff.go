package render

import (
	"fmt"
	"io"
	"strings"

	diffpatch "github.com/sergi/go-diff/diffmatchpatch"
)

// Diff writes a line diff of the contents of file name.
func Diff(w io.Writer, name, from, to string, c *Colors) error {
	dmp := diffpatch.New()
	a, b, lines := dmp.DiffLinesToChars(from, to)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)
	if _, err := fmt.Fprintf(w, "%s\n%s\n", c.Color(RemovedColor, "--- "+name), c.Color(AddedColor, "+++ "+name)); err != nil {
		return err
	}
	for _, d := range diffs {
		prefix, attr := "  ", TextColor
		switch d.Type {
		case diffpatch.DiffInsert:
			prefix, attr = "+ ", AddedColor
		case diffpatch.DiffDelete:
			prefix, attr = "- ", RemovedColor
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			text := c.Color(attr, prefix+strings.TrimSuffix(line, "\n"))
			if _, err := fmt.Fprintln(w, text); err != nil {
				return err
			}
		}
	}
	return nil
}

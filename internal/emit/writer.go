package emit

import (
	"fmt"
	"strings"
)

// codeWriter accumulates generated lines at a two-space indentation step.
type codeWriter struct {
	out    strings.Builder
	indent int
}

// line writes one indented, newline-terminated line.
func (w *codeWriter) line(format string, args ...any) {
	for i := 0; i < w.indent; i++ {
		w.out.WriteString("  ")
	}
	if len(args) == 0 {
		w.out.WriteString(format)
	} else {
		fmt.Fprintf(&w.out, format, args...)
	}
	w.out.WriteByte('\n')
}

// lines writes a multi-line snippet, indenting every non-empty line.
func (w *codeWriter) lines(snippet string) {
	for _, l := range strings.Split(strings.TrimRight(snippet, "\n"), "\n") {
		if strings.TrimSpace(l) == "" {
			w.out.WriteByte('\n')
			continue
		}
		w.line("%s", l)
	}
}

func (w *codeWriter) blank() {
	w.out.WriteByte('\n')
}

func (w *codeWriter) push() { w.indent++ }
func (w *codeWriter) pop()  { w.indent-- }

func (w *codeWriter) String() string {
	return w.out.String()
}

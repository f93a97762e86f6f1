package formats

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// PlainText renders outlines as indented text:
//
//	March 10, 2024 [dailyDocument]
//	  Project
//	    [ ] write report
//	    [x] call back
//	  (untitled) [rolled]
//	    -> [ ] write report
var PlainText = &Format{
	Name:      "plaintext",
	Extension: ".txt",
	Outline: func(w io.Writer, root *OutlineNode) error {
		bw := bufio.NewWriter(w)
		writePlain(bw, root, 0)
		return bw.Flush()
	},
}

func init() {
	if err := Register(PlainText); err != nil {
		panic(fmt.Sprintf("failed to register PlainText format: %v", err))
	}
}

func writePlain(w *bufio.Writer, n *OutlineNode, depth int) {
	indent := strings.Repeat("  ", depth)
	w.WriteString(indent)
	w.WriteString(checkbox(n.Status))
	w.WriteString(label(n.Text))
	if len(n.Markers) > 0 {
		w.WriteString(" [" + strings.Join(n.Markers, ", ") + "]")
	}
	w.WriteString("\n")

	for _, l := range n.Links {
		w.WriteString(indent + "  -> " + checkbox(l.Status) + label(l.Text) + "\n")
	}
	for _, c := range n.Children {
		writePlain(w, c, depth+1)
	}
}

package formats

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Markdown renders the root as a heading and its subtree as a nested list.
// Task nodes become GitHub checkboxes, markers become #tags and mirror
// entries are shown as quoted list items.
var Markdown = &Format{
	Name:      "markdown",
	Extension: ".md",
	Outline: func(w io.Writer, root *OutlineNode) error {
		bw := bufio.NewWriter(w)
		bw.WriteString("# " + label(root.Text) + tags(root.Markers) + "\n")
		if len(root.Links) > 0 || len(root.Children) > 0 {
			bw.WriteString("\n")
		}
		writeLinks(bw, root, 0)
		for _, c := range root.Children {
			writeMarkdown(bw, c, 0)
		}
		return bw.Flush()
	},
}

func init() {
	if err := Register(Markdown); err != nil {
		panic(fmt.Sprintf("failed to register Markdown format: %v", err))
	}
}

func writeMarkdown(w *bufio.Writer, n *OutlineNode, depth int) {
	indent := strings.Repeat("  ", depth)
	w.WriteString(indent + "- " + checkbox(n.Status) + label(n.Text) + tags(n.Markers) + "\n")
	writeLinks(w, n, depth+1)
	for _, c := range n.Children {
		writeMarkdown(w, c, depth+1)
	}
}

func writeLinks(w *bufio.Writer, n *OutlineNode, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, l := range n.Links {
		w.WriteString(indent + "- > " + checkbox(l.Status) + label(l.Text) + "\n")
	}
}

func tags(markers []string) string {
	if len(markers) == 0 {
		return ""
	}
	return " #" + strings.Join(markers, " #")
}

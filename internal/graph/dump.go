package graph

import (
	"fmt"
	"io"
	"strings"
)

// Dump writes the graph structure to w. The only supported format is "dot".
func (g *Graph) Dump(w io.Writer, format string) error {
	if format != "dot" {
		return fmt.Errorf("dump: unknown format %q", format)
	}
	var b strings.Builder
	b.WriteString("digraph dagrad {\n")
	b.WriteString("  node [shape=box];\n")
	for fid, rec := range g.funcs {
		shapes := make([]string, len(rec.rets))
		for i, r := range rec.rets {
			shapes[i] = r.shape.String()
		}
		fmt.Fprintf(&b, "  f%d [label=\"%d: %s\\n%s\"];\n", fid, fid, rec.fn.Name(), strings.Join(shapes, " "))
	}
	for fid, rec := range g.funcs {
		for _, a := range rec.args {
			fmt.Fprintf(&b, "  f%d -> f%d;\n", a.fid, fid)
		}
	}
	b.WriteString("}\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// Copyright 2026 streamgen Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rtl

import (
	"fmt"
	"io"
)

// WriteDOT renders the graph in Graphviz DOT format for visualization.
// Register and memory nodes are boxed to make the state elements stand out.
func WriteDOT(w io.Writer, g *Graph, name string) error {
	if _, err := fmt.Fprintf(w, "digraph %q {\n  rankdir=LR;\n", name); err != nil {
		return err
	}
	for id, n := range g.nodes {
		label := n.kind.String()
		switch n.kind {
		case KindConst:
			label = fmt.Sprintf("%#x", n.val)
		case KindInput, KindOutput, KindExtIP:
			label = fmt.Sprintf("%s %s", n.kind, n.name)
		case KindSlice:
			label = fmt.Sprintf("[%d:%d]", int(n.val)+n.width-1, n.val)
		}
		shape := "ellipse"
		if n.kind == KindReg || n.kind == KindRAM {
			shape = "box"
		}
		if _, err := fmt.Fprintf(w, "  n%d [label=\"%s:%d\" shape=%s];\n", id, label, n.width, shape); err != nil {
			return err
		}
		for _, a := range n.args {
			if a == Nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "  n%d -> n%d;\n", a, id); err != nil {
				return err
			}
		}
	}
	_, err := fmt.Fprintln(w, "}")
	return err
}

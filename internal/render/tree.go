// Package render formats trees, change logs and mirror records for the CLI.
package render

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dyluth/drey/pkg/tree"
)

// Outline renders t as an indented outline, one instance per line and,
// when withProperties is set, one line per property in key order.
func Outline(t *tree.Tree, withProperties bool) string {
	var b strings.Builder
	t.Walk(func(inst *tree.Instance, depth int) bool {
		indent := strings.Repeat("  ", depth)
		fmt.Fprintf(&b, "%s%s (%s) %s\n", indent, inst.Name(), inst.Class(), inst.ID().Short())
		if withProperties {
			props := inst.Properties()
			for _, key := range sortedKeys(props) {
				fmt.Fprintf(&b, "%s  .%s = %s\n", indent, key, props[key])
			}
		}
		return true
	})
	return b.String()
}

// FormatTree writes the outline of t to w.
func FormatTree(w io.Writer, t *tree.Tree, withProperties bool) error {
	_, err := io.WriteString(w, Outline(t, withProperties))
	return err
}

// FormatInstances writes insts as a table with columns ID, CLASS, NAME and
// PROPS. Returns the number of instances formatted.
func FormatInstances(w io.Writer, insts []*tree.Instance) int {
	if len(insts) == 0 {
		fmt.Fprintln(w, "No matching instances")
		return 0
	}

	fmt.Fprintf(w, "%-10s %-20s %-30s %s\n", "ID", "CLASS", "NAME", "PROPS")
	fmt.Fprintf(w, "%-10s %-20s %-30s %s\n", "----------", "--------------------", "------------------------------", "-----")
	for _, inst := range insts {
		fmt.Fprintf(w, "%-10s %-20s %-30s %d\n",
			inst.ID().Short(), truncate(inst.Class(), 20), truncate(inst.Name(), 30), len(inst.Properties()))
	}

	noun := "instance"
	if len(insts) != 1 {
		noun = "instances"
	}
	fmt.Fprintf(w, "\n%d %s found\n", len(insts), noun)
	return len(insts)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n-3] + "..."
	}
	return s
}

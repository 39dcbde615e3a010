package render

import (
	"fmt"
	"io"

	"github.com/dyluth/drey/pkg/snapshot"
	"github.com/dyluth/drey/pkg/tree"
)

// Lookup resolves instance IDs to instances for display. *tree.Tree
// implements it.
type Lookup interface {
	Get(id tree.ID) (*tree.Instance, bool)
}

// FormatApplied writes a summary of applied followed by one line per change:
// "-" for removals, "+" for additions and "~" for updates. Names are looked
// up in after when it is non-nil.
func FormatApplied(w io.Writer, applied snapshot.AppliedPatchSet, after Lookup) {
	fmt.Fprintf(w, "%d removed, %d added, %d updated\n",
		len(applied.Removed), len(applied.Added), len(applied.Updated))

	for _, id := range applied.Removed {
		fmt.Fprintf(w, "  - %s\n", id.Short())
	}

	for _, id := range applied.Added {
		fmt.Fprintf(w, "  + %s%s\n", id.Short(), describe(after, id))
	}

	for _, u := range applied.Updated {
		fmt.Fprintf(w, "  ~ %s%s\n", u.ID.Short(), describe(after, u.ID))
		if u.ChangedName != nil {
			fmt.Fprintf(w, "      name = %q\n", *u.ChangedName)
		}
		if u.ChangedClass != nil {
			fmt.Fprintf(w, "      class = %q\n", *u.ChangedClass)
		}
		if u.ChangedMetadata != nil {
			fmt.Fprintf(w, "      metadata replaced\n")
		}
		for _, key := range sortedKeys(u.ChangedProperties) {
			fmt.Fprintf(w, "      .%s %s\n", key, u.ChangedProperties[key])
		}
	}
}

func describe(after Lookup, id tree.ID) string {
	if after == nil {
		return ""
	}
	inst, ok := after.Get(id)
	if !ok {
		return ""
	}
	return fmt.Sprintf(" %s (%s)", inst.Name(), inst.Class())
}

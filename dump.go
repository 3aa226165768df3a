package bptree

import (
	"fmt"
	"io"
	"strings"
)

// dumpPage writes p and its subtree to w, indented by depth, loading
// children as needed. Output is written as it is produced: any I/O or
// decode failure aborts the dump, and whatever was already written to
// w before the failure stays there.
func dumpPage(w io.Writer, wr *writer, p *page, depth int) error {
	indent := strings.Repeat("  ", depth)
	kindName := "leaf"
	if p.kind == pageInternal {
		kindName = "internal"
	}

	if _, err := fmt.Fprintf(w, "%s%s offset=%d entries=%d byte_size=%d\n", indent, kindName, p.offset, len(p.entries), p.byteSize); err != nil {
		return err
	}

	for i, e := range p.entries {
		if p.kind == pageLeaf {
			if _, err := fmt.Fprintf(w, "%s  [%d] key=%q offset=%d vlen=%d\n", indent, i, e.value, e.offset, e.config); err != nil {
				return err
			}
			continue
		}

		if _, err := fmt.Fprintf(w, "%s  [%d] key=%q ->\n", indent, i, e.value); err != nil {
			return err
		}
		child, err := loadPage(wr, e.offset, e.config)
		if err != nil {
			return err
		}
		if err := dumpPage(w, wr, child, depth+2); err != nil {
			return err
		}
	}

	return nil
}

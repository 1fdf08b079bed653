package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"menuforge/internal/menutree"
)

// ParseCSV reads the five-column layout
//
//	parent, child, childUri, sub, subUri
//
// A row with a parent opens a new root item. A child and its uri append to
// the last root; a sub item and its uri append to the last child. Blank rows
// and rows starting with #N/A are skipped.
func ParseCSV(r io.Reader, newID menutree.IDFunc) ([]menutree.Item, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	var rows [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: csv: %v", ErrInvalidInput, err)
		}
		rows = append(rows, rec)
	}
	return FromRows(rows, newID), nil
}

// FromRows builds a tree from already split rows using the ParseCSV layout.
func FromRows(rows [][]string, newID menutree.IDFunc) []menutree.Item {
	if newID == nil {
		newID = menutree.NewID
	}

	var b rowBuilder
	for _, row := range rows {
		cols := make([]string, 5)
		for i := 0; i < len(row) && i < 5; i++ {
			cols[i] = strings.TrimSpace(strings.Trim(strings.TrimSpace(row[i]), `"`))
		}
		if strings.Join(cols, "") == "" || strings.HasPrefix(cols[0], "#N/A") {
			continue
		}
		b.add(cols, newID)
	}
	return b.items()
}

// rowBuilder appends to the last root and to that root's last child.
type rowBuilder struct {
	roots      []menutree.Item
	childOpen  bool
	parentOpen bool
}

func (b *rowBuilder) add(cols []string, newID menutree.IDFunc) {
	parent, child, childURI, sub, subURI := cols[0], cols[1], cols[2], cols[3], cols[4]

	if parent != "" {
		b.roots = append(b.roots, menutree.Item{ID: newID(), Text: parent, Children: []menutree.Item{}})
		b.parentOpen = true
		b.childOpen = false
	}
	if !b.parentOpen {
		return
	}

	p := &b.roots[len(b.roots)-1]
	if child != "" && childURI != "" {
		p.Children = append(p.Children, menutree.Item{ID: newID(), Text: child, URI: childURI, Children: []menutree.Item{}})
		b.childOpen = true
	}
	if sub != "" && subURI != "" && b.childOpen {
		c := &p.Children[len(p.Children)-1]
		c.Children = append(c.Children, menutree.Item{ID: newID(), Text: sub, URI: subURI, Children: []menutree.Item{}})
	}
}

func (b *rowBuilder) items() []menutree.Item {
	if b.roots == nil {
		return []menutree.Item{}
	}
	return b.roots
}

// Package menutree implements the recursive menu item type and pure
// transformations over ordered item sequences.
//
// Every operation returns a new sequence and never mutates its input:
// ancestors on the path to a changed node are copied, untouched subtrees are
// shared with the original.
package menutree

import (
	"bytes"
	"encoding/json"

	"github.com/google/uuid"
)

// DefaultText is the label given to items created without one.
const DefaultText = "New item"

// Item is one node of a menu tree.
type Item struct {
	ID             string `json:"id"`
	Text           string `json:"text"`
	URI            string `json:"uri,omitempty"`
	Image          string `json:"image,omitempty"`
	Icon           string `json:"icon,omitempty"`
	ClassName      string `json:"className,omitempty"`
	LevelClassName string `json:"levelClassName,omitempty"`
	SVG            string `json:"SVG,omitempty"`
	// Visible is nil when never set; nil and true both mean rendered.
	Visible  *bool  `json:"visible,omitempty"`
	Children []Item `json:"children,omitempty"`
}

// itemJSON has Item's fields without its MarshalJSON method.
type itemJSON Item

// MarshalJSON keeps the difference between absent children (nil, omitted)
// and an explicitly empty list (emitted as "children": []). Text is written
// as is: "&", "<" and ">" are not escaped.
func (it Item) MarshalJSON() ([]byte, error) {
	if it.Children == nil {
		return marshalRaw(itemJSON(it))
	}
	return marshalRaw(struct {
		itemJSON
		Children []Item `json:"children"`
	}{itemJSON(it), it.Children})
}

func marshalRaw(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// IsVisible reports whether the item is rendered in previews and exports.
func (it Item) IsVisible() bool {
	return it.Visible == nil || *it.Visible
}

// HasChildren reports whether the item has at least one child.
func (it Item) HasChildren() bool {
	return len(it.Children) > 0
}

// IDFunc produces a fresh, globally unique item id.
type IDFunc func() string

// NewID is the default IDFunc.
func NewID() string {
	return uuid.NewString()
}

// NewItem returns a leaf item with a fresh id. An empty text falls back to
// DefaultText.
func NewItem(text string) Item {
	if text == "" {
		text = DefaultText
	}
	return Item{ID: NewID(), Text: text, Children: []Item{}}
}

// Fields is a partial update of an item's attributes. Nil members are left
// untouched; children and id are never affected.
type Fields struct {
	Text           *string `json:"text,omitempty"`
	URI            *string `json:"uri,omitempty"`
	Image          *string `json:"image,omitempty"`
	Icon           *string `json:"icon,omitempty"`
	ClassName      *string `json:"className,omitempty"`
	LevelClassName *string `json:"levelClassName,omitempty"`
	SVG            *string `json:"SVG,omitempty"`
	Visible        *bool   `json:"visible,omitempty"`
}

// IsZero reports whether no field is set.
func (f Fields) IsZero() bool {
	return f == Fields{}
}

// Apply returns a copy of it with the set fields merged in.
func (f Fields) Apply(it Item) Item {
	if f.Text != nil {
		it.Text = *f.Text
	}
	if f.URI != nil {
		it.URI = *f.URI
	}
	if f.Image != nil {
		it.Image = *f.Image
	}
	if f.Icon != nil {
		it.Icon = *f.Icon
	}
	if f.ClassName != nil {
		it.ClassName = *f.ClassName
	}
	if f.LevelClassName != nil {
		it.LevelClassName = *f.LevelClassName
	}
	if f.SVG != nil {
		it.SVG = *f.SVG
	}
	if f.Visible != nil {
		v := *f.Visible
		it.Visible = &v
	}
	return it
}

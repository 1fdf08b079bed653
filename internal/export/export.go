// Package export turns a menu tree into downloadable artifacts.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"menuforge/internal/menutree"
	"menuforge/internal/templates"
)

// Format is an artifact kind.
type Format string

const (
	FormatJSON Format = "json"
	FormatPHP  Format = "php"
	FormatHTML Format = "html"
)

// ParseFormat accepts json, php and html in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatPHP, FormatHTML:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatPHP:
		return "text/x-php"
	case FormatHTML:
		return "text/html; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

// Artifact is a rendered export.
type Artifact struct {
	Filename    string
	ContentType string
	Body        []byte
}

// Options tune Render.
type Options struct {
	// Template is the body used for FormatPHP. Empty falls back to the default.
	Template string
	// VisibleOnly drops hidden items before rendering.
	VisibleOnly bool
}

// Render produces the artifact for one menu.
func Render(name string, items []menutree.Item, f Format, opts Options) (Artifact, error) {
	if opts.VisibleOnly {
		items = menutree.PruneInvisible(items)
	}

	var (
		body []byte
		err  error
	)
	switch f {
	case FormatJSON:
		body, err = JSON(items)
	case FormatPHP:
		body = []byte(Code(opts.Template))
	case FormatHTML:
		body, err = HTML(name, items)
	default:
		err = fmt.Errorf("unsupported export format %q", f)
	}
	if err != nil {
		return Artifact{}, err
	}

	return Artifact{
		Filename:    Filename(name, string(f)),
		ContentType: f.ContentType(),
		Body:        body,
	}, nil
}

// JSON serializes items as two-space indented JSON with every empty
// children list removed.
func JSON(items []menutree.Item) ([]byte, error) {
	cleaned := StripEmptyChildren(items)
	if cleaned == nil {
		cleaned = []menutree.Item{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(cleaned); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// StripEmptyChildren returns a copy of items where every node without
// children has a nil children list. The input is not modified.
func StripEmptyChildren(items []menutree.Item) []menutree.Item {
	if items == nil {
		return nil
	}
	out := make([]menutree.Item, len(items))
	for i, it := range items {
		if len(it.Children) == 0 {
			it.Children = nil
		} else {
			it.Children = StripEmptyChildren(it.Children)
		}
		out[i] = it
	}
	return out
}

// Code wraps tmpl in PHP helpers: renderMenu walks a list of items and
// renderMenuItem renders one item with the template markup. The template is
// embedded verbatim and never evaluated here.
func Code(tmpl string) string {
	if strings.TrimSpace(tmpl) == "" {
		tmpl = templates.DefaultBody
	}

	var b strings.Builder
	b.WriteString("<?php\n")
	b.WriteString("// Generated PHP helpers for menu export\n")
	b.WriteString("function renderMenu($items) {\n")
	b.WriteString("    $out = '';\n")
	b.WriteString("    foreach ($items as $item) {\n")
	b.WriteString("        $out .= <<<HTML\n")
	b.WriteString("\" . renderMenuItem($item) . \"\n")
	b.WriteString("HTML;\n")
	b.WriteString("    }\n")
	b.WriteString("    return $out;\n")
	b.WriteString("}\n\n")
	b.WriteString("function renderMenuItem($item) {\n")
	b.WriteString("    $out = '';\n")
	b.WriteString("    // --- customize markup here ---\n")
	b.WriteString("    $out .= <<<HTML\n")
	b.WriteString(tmpl)
	b.WriteString("\nHTML;\n")
	b.WriteString("    return $out;\n")
	b.WriteString("}\n\n")
	b.WriteString("// Example usage:\n")
	b.WriteString("echo '<ul>' . renderMenu($menuArray) . '</ul>';\n")
	b.WriteString("?>")
	return b.String()
}

// Filename builds "<name>.<ext>", replacing characters that are unsafe in a
// Content-Disposition header or a path. Blank names become "menu".
func Filename(name, ext string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "menu"
	}
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', '"', ':', '*', '?', '<', '>', '|', '\n', '\r':
			return '_'
		}
		return r
	}, name)
	return name + "." + ext
}

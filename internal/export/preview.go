package export

import (
	"bytes"
	"html/template"
	"strings"

	"menuforge/internal/menutree"
)

var previewTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Name}}</title>
</head>
<body>
<div class="menu-preview">
<h2>Menu preview</h2>
{{template "list" .Items}}
</div>
</body>
</html>
{{define "list"}}<ul class="menu">
{{range .}}<li{{if .ClassName}} class="{{.ClassName}}"{{end}}>
{{- if .Image}}<img src="{{.Image}}" alt="img" class="image">{{end}}
{{- if .Icon}}<span class="icon">[icon: {{.Icon}}]</span>{{end}}
{{- if .SVG}}<span class="icon">[SVG: {{.SVG}}]</span>{{end}}
{{- if .URI}}<a href="{{.URI}}" class="link">{{.Text}}</a>{{else}}<span class="text">{{.Text}}</span>{{end}}
{{- if .Children}}
{{template "list" .Children}}{{end}}</li>
{{end}}</ul>{{end}}`))

// HTML renders a standalone preview page. Every value is escaped; images
// given as data URIs are kept as-is.
func HTML(name string, items []menutree.Item) ([]byte, error) {
	view := struct {
		Name  string
		Items []previewItem
	}{Name: name, Items: toPreview(items)}

	var buf bytes.Buffer
	if err := previewTmpl.Execute(&buf, view); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type previewItem struct {
	Text      string
	URI       template.URL
	Image     template.URL
	Icon      string
	SVG       string
	ClassName string
	Children  []previewItem
}

func toPreview(items []menutree.Item) []previewItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]previewItem, 0, len(items))
	for _, it := range items {
		out = append(out, previewItem{
			Text:      it.Text,
			URI:       safeURL(it.URI),
			Image:     safeURL(it.Image),
			Icon:      it.Icon,
			SVG:       it.SVG,
			ClassName: it.ClassName,
			Children:  toPreview(it.Children),
		})
	}
	return out
}

// safeURL passes through relative links and the schemes a menu may
// legitimately use. Anything else is replaced with "#".
func safeURL(raw string) template.URL {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	lower := strings.ToLower(s)
	switch {
	case strings.HasPrefix(lower, "http://"),
		strings.HasPrefix(lower, "https://"),
		strings.HasPrefix(lower, "mailto:"),
		strings.HasPrefix(lower, "tel:"),
		strings.HasPrefix(lower, "data:image/"):
		return template.URL(s)
	case !strings.Contains(strings.SplitN(lower, "/", 2)[0], ":"):
		return template.URL(s)
	default:
		return "#"
	}
}

package models

// Template is a named export template body.
type Template struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

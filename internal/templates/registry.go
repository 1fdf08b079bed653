// Package templates holds the export template registry rules: the mandatory
// "default" entry, list validation and normalization.
package templates

import (
	"errors"
	"fmt"
	"strings"

	"menuforge/internal/models"
)

// DefaultName is the reserved template name. It can never be deleted.
const DefaultName = "default"

// DefaultBody is the built-in fallback template body.
const DefaultBody = `<li class="<?= htmlspecialchars($item['className'] ?? '') ?>">
  <a href="<?= htmlspecialchars($item['uri'] ?? '#') ?>">
    <?= htmlspecialchars($item['text'] ?? '') ?>
  </a>
  <?php if (!empty($item['children'])): ?>
    <ul>
      <?= renderMenu($item['children']); ?>
    </ul>
  <?php endif; ?>
</li>`

// ErrDefaultProtected is returned when deleting the default template.
var ErrDefaultProtected = errors.New(`template "default" cannot be deleted`)

// ValidationError lists every problem found in a template list.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "invalid templates: " + strings.Join(e.Messages, "; ")
}

// Validate normalizes list (names trimmed, values trimmed on the right) and
// rejects blank names, duplicate names and empty values. A "default" entry
// with an empty value is filled with DefaultBody. On success the result
// always satisfies the default invariant; on failure no list is returned.
func Validate(list []models.Template) ([]models.Template, error) {
	normalized := make([]models.Template, 0, len(list))
	seen := make(map[string]struct{}, len(list))
	var msgs []string

	for i, raw := range list {
		name := strings.TrimSpace(raw.Name)
		if name == "" {
			msgs = append(msgs, fmt.Sprintf("template at index %d has no name", i))
			continue
		}
		value := strings.TrimRight(raw.Value, " \t\r\n")
		if value == "" && name == DefaultName {
			value = DefaultBody
		}
		if _, dup := seen[name]; dup {
			msgs = append(msgs, fmt.Sprintf("template %q already exists", name))
			continue
		}
		if value == "" {
			msgs = append(msgs, fmt.Sprintf("template %q has an empty body", name))
			continue
		}
		seen[name] = struct{}{}
		normalized = append(normalized, models.Template{Name: name, Value: value})
	}

	if len(msgs) > 0 {
		return nil, &ValidationError{Messages: msgs}
	}
	return EnsureDefault(normalized), nil
}

// EnsureDefault returns a copy of list that contains a "default" entry with a
// non-blank body, prepending one when absent. Other entries keep their order.
func EnsureDefault(list []models.Template) []models.Template {
	out := make([]models.Template, 0, len(list)+1)
	hasDefault := false
	for _, t := range list {
		if t.Name == DefaultName {
			if hasDefault {
				continue
			}
			hasDefault = true
			if strings.TrimSpace(t.Value) == "" {
				t.Value = DefaultBody
			}
		}
		out = append(out, t)
	}
	if hasDefault {
		return out
	}
	return append([]models.Template{{Name: DefaultName, Value: DefaultBody}}, out...)
}

// Equal reports whether a and b hold the same names in the same order with
// the same bodies, ignoring trailing whitespace.
func Equal(a, b []models.Template) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name {
			return false
		}
		if strings.TrimRight(a[i].Value, " \t\r\n") != strings.TrimRight(b[i].Value, " \t\r\n") {
			return false
		}
	}
	return true
}

// Lookup returns the body of the named template. A blank name, an unknown
// name or an empty body all fall back to DefaultBody.
func Lookup(list []models.Template, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultName
	}
	for _, t := range list {
		if t.Name == name && strings.TrimSpace(t.Value) != "" {
			return t.Value
		}
	}
	return DefaultBody
}

// CheckDeletable rejects the reserved name.
func CheckDeletable(name string) error {
	if strings.TrimSpace(name) == DefaultName {
		return ErrDefaultProtected
	}
	return nil
}

package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"menuforge/internal/models"
)

func (s *Store) ListTemplates(ctx context.Context) ([]models.Template, error) {
	rows, err := s.db.Query(ctx, `
		SELECT name, value
		FROM templates
		ORDER BY position ASC, name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Template{}
	for rows.Next() {
		var t models.Template
		if err := rows.Scan(&t.Name, &t.Value); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ReplaceTemplates deletes and reloads the table inside one transaction, so
// concurrent readers see either the old or the new list.
func (s *Store) ReplaceTemplates(ctx context.Context, list []models.Template) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM templates`); err != nil {
		return err
	}

	rows := make([][]any, len(list))
	for i, t := range list {
		rows[i] = []any{t.Name, t.Value, i}
	}
	if len(rows) > 0 {
		if _, err := tx.CopyFrom(ctx,
			pgx.Identifier{"templates"},
			[]string{"name", "value", "position"},
			pgx.CopyFromRows(rows),
		); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *Store) DeleteTemplate(ctx context.Context, name string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM templates WHERE name=$1`, name)
	return err
}

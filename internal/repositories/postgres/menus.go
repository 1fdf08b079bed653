package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"menuforge/internal/httpkit"
	"menuforge/internal/menutree"
	"menuforge/internal/models"
	"menuforge/internal/ports"
)

const menuColumns = `id, user_id, name, items, created_at, updated_at`

func (s *Store) ListMenus(ctx context.Context, f models.MenuFilter) ([]models.Menu, error) {
	var (
		where []string
		args  []any
	)
	if f.OwnerID != "" {
		args = append(args, f.OwnerID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if name := strings.TrimSpace(f.Name); name != "" {
		args = append(args, "%"+escapeLike(name)+"%")
		where = append(where, fmt.Sprintf(`name ILIKE $%d ESCAPE '\'`, len(args)))
	}

	q := `SELECT ` + menuColumns + ` FROM menus`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	if f.Sort == models.SortNameAsc {
		q += ` ORDER BY lower(name) ASC, created_at DESC`
	} else {
		q += ` ORDER BY created_at DESC`
	}

	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Menu{}
	for rows.Next() {
		m, err := scanMenu(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) GetMenu(ctx context.Context, id, owner string) (models.Menu, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+menuColumns+`
		FROM menus
		WHERE id=$1 AND ($2 = '' OR user_id=$2)
	`, id, owner)
	m, err := scanMenu(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Menu{}, ports.ErrMenuNotFound
	}
	return m, err
}

func (s *Store) CreateMenu(ctx context.Context, m models.Menu) error {
	items, err := marshalItems(m.Items)
	if err != nil {
		return err
	}
	createdAt := m.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO menus (id, user_id, name, items, created_at, updated_at)
		VALUES ($1,$2,$3,$4::jsonb,$5,$5)
	`, m.ID, m.UserID, m.Name, items, createdAt)
	if err != nil {
		if httpkit.IsUniqueViolation(err) {
			return ports.ErrMenuExists
		}
		return err
	}
	return nil
}

// ReplaceMenu locks the row while checking ownership so a concurrent delete
// cannot slip between the check and the write.
func (s *Store) ReplaceMenu(ctx context.Context, m models.Menu, owner string) (models.Menu, error) {
	items, err := marshalItems(m.Items)
	if err != nil {
		return models.Menu{}, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return models.Menu{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var currentOwner string
	err = tx.QueryRow(ctx, `SELECT user_id FROM menus WHERE id=$1 FOR UPDATE`, m.ID).Scan(&currentOwner)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		row := tx.QueryRow(ctx, `
			INSERT INTO menus (id, user_id, name, items)
			VALUES ($1,$2,$3,$4::jsonb)
			RETURNING `+menuColumns, m.ID, m.UserID, m.Name, items)
		if m, err = scanMenu(row); err != nil {
			return models.Menu{}, err
		}
	case err != nil:
		return models.Menu{}, err
	case owner != "" && currentOwner != owner:
		return models.Menu{}, ports.ErrMenuNotFound
	default:
		row := tx.QueryRow(ctx, `
			UPDATE menus SET name=$2, items=$3::jsonb, updated_at=now()
			WHERE id=$1
			RETURNING `+menuColumns, m.ID, m.Name, items)
		if m, err = scanMenu(row); err != nil {
			return models.Menu{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return models.Menu{}, err
	}
	return m, nil
}

func (s *Store) DeleteMenu(ctx context.Context, id, owner string) error {
	cmd, err := s.db.Exec(ctx, `
		DELETE FROM menus
		WHERE id=$1 AND ($2 = '' OR user_id=$2)
	`, id, owner)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ports.ErrMenuNotFound
	}
	return nil
}

func scanMenu(row pgx.Row) (models.Menu, error) {
	var (
		m     models.Menu
		items []byte
	)
	if err := row.Scan(&m.ID, &m.UserID, &m.Name, &items, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return models.Menu{}, err
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &m.Items); err != nil {
			return models.Menu{}, fmt.Errorf("decode menu %s items: %w", m.ID, err)
		}
	}
	if m.Items == nil {
		m.Items = []menutree.Item{}
	}
	return m, nil
}

func marshalItems(items []menutree.Item) ([]byte, error) {
	if items == nil {
		items = []menutree.Item{}
	}
	return json.Marshal(items)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"menuforge/internal/httpkit"
	"menuforge/internal/models"
	"menuforge/internal/ports"
)

func (s *Store) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	var u models.User
	err := s.db.QueryRow(ctx, `
		SELECT id, username, password_hash, role, created_at
		FROM users
		WHERE username=$1
	`, username).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.User{}, ports.ErrUserNotFound
	}
	return u, err
}

func (s *Store) CreateUser(ctx context.Context, u models.User) error {
	if err := u.CheckRole(); err != nil {
		return err
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO users (id, username, password_hash, role, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, u.ID, u.Username, u.PasswordHash, u.Role, u.CreatedAt)
	if err != nil {
		if httpkit.IsUniqueViolation(err) {
			return ports.ErrUserExists
		}
		if httpkit.IsCheckViolation(err) {
			return models.ErrAdminRoleReserved
		}
		return err
	}
	return nil
}

func (s *Store) UpdateUser(ctx context.Context, u models.User) error {
	if err := u.CheckRole(); err != nil {
		return err
	}
	cmd, err := s.db.Exec(ctx, `
		UPDATE users SET username=$2, password_hash=$3, role=$4
		WHERE id=$1
	`, u.ID, u.Username, u.PasswordHash, u.Role)
	if err != nil {
		if httpkit.IsUniqueViolation(err) {
			return ports.ErrUserExists
		}
		if httpkit.IsCheckViolation(err) {
			return models.ErrAdminRoleReserved
		}
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ports.ErrUserNotFound
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, username, password_hash, role, created_at
		FROM users
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.User{}
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

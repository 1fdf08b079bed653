package handlers

import (
	"net/http"

	"menuforge/internal/auth"
	"menuforge/internal/httpkit"
	"menuforge/internal/models"
	apperrors "menuforge/internal/pkg/errors"
)

// Register handles POST /auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) error {
	var req auth.Credentials
	if err := httpkit.DecodeJSON(w, r, &req); err != nil {
		return err
	}
	sess, err := h.auth.Register(r.Context(), req)
	if err != nil {
		return err
	}
	h.log.FromContext(r.Context()).Info("user registered", "username", sess.User.Username)
	httpkit.WriteJSON(w, http.StatusCreated, sess)
	return nil
}

// Login handles POST /auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) error {
	var req auth.Credentials
	if err := httpkit.DecodeJSON(w, r, &req); err != nil {
		return err
	}
	sess, err := h.auth.Login(r.Context(), req)
	if err != nil {
		return err
	}
	httpkit.WriteJSON(w, http.StatusOK, sess)
	return nil
}

// Me handles GET /me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) error {
	id, err := caller(r)
	if err != nil {
		return err
	}
	httpkit.WriteJSON(w, http.StatusOK, map[string]any{
		"user": models.PublicUser{ID: id.UserID, Username: id.Username, Role: id.Role},
	})
	return nil
}

// ListUsers handles GET /users (admin only).
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) error {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		return apperrors.Wrap(err, "users.list", "failed to list users")
	}
	out := make([]models.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	httpkit.WriteJSON(w, http.StatusOK, out)
	return nil
}

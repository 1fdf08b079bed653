package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"menuforge/internal/menutree"
	"menuforge/internal/models"
	apperrors "menuforge/internal/pkg/errors"
	"menuforge/internal/ports"
)

// Credential length limits.
const (
	MinUsernameLen = 3
	MinPasswordLen = 6
)

// Credentials is the register and login request body.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate trims the username and checks both fields, reporting one message
// per offending field.
func (c Credentials) Validate() (Credentials, error) {
	c.Username = strings.TrimSpace(c.Username)
	fieldErrors := map[string]string{}
	switch {
	case c.Username == "":
		fieldErrors["username"] = "username is required"
	case len(c.Username) < MinUsernameLen:
		fieldErrors["username"] = "username must be at least 3 characters"
	}
	switch {
	case c.Password == "":
		fieldErrors["password"] = "password is required"
	case len(c.Password) < MinPasswordLen:
		fieldErrors["password"] = "password must be at least 6 characters"
	}
	if len(fieldErrors) > 0 {
		return c, apperrors.ValidationFields("invalid credentials", fieldErrors)
	}
	return c, nil
}

// Session is returned by a successful register or login.
type Session struct {
	Token string            `json:"token"`
	User  models.PublicUser `json:"user"`
}

// AdminAction reports what EnsureAdmin did.
type AdminAction string

// EnsureAdmin outcomes.
const (
	AdminCreated   AdminAction = "created"
	AdminUpdated   AdminAction = "updated"
	AdminUnchanged AdminAction = "unchanged"
)

// Service implements registration, login and admin bootstrap over a UserStore.
type Service struct {
	users         ports.UserStore
	tokens        *Tokens
	adminPassword string
	cost          int
	now           func() time.Time
	newID         menutree.IDFunc
}

// Option configures a Service.
type Option func(*Service)

// WithBcryptCost overrides the hashing cost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService returns a Service. adminPassword is the bootstrap secret for the
// "admin" account.
func NewService(users ports.UserStore, tokens *Tokens, adminPassword string, opts ...Option) *Service {
	s := &Service{
		users:         users,
		tokens:        tokens,
		adminPassword: adminPassword,
		cost:          bcrypt.DefaultCost,
		now:           time.Now,
		newID:         menutree.NewID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tokens returns the signer used for sessions.
func (s *Service) Tokens() *Tokens { return s.tokens }

// Register creates a regular account. The admin username cannot be
// registered.
func (s *Service) Register(ctx context.Context, c Credentials) (Session, error) {
	c, err := c.Validate()
	if err != nil {
		return Session{}, err
	}
	if c.Username == models.AdminUsername {
		return Session{}, apperrors.Forbidden("admin registration is disabled")
	}

	hash, err := HashPassword(c.Password, s.cost)
	if err != nil {
		return Session{}, apperrors.Wrap(err, "auth.register", "could not register user")
	}
	u := models.User{
		ID:           s.newID(),
		Username:     c.Username,
		PasswordHash: hash,
		Role:         models.RoleUser,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, ports.ErrUserExists) {
			return Session{}, apperrors.Conflict("user already exists")
		}
		return Session{}, apperrors.Wrap(err, "auth.register", "could not register user")
	}
	return s.session(u)
}

// Login checks credentials. The first successful login as "admin" with the
// bootstrap secret provisions the admin account.
func (s *Service) Login(ctx context.Context, c Credentials) (Session, error) {
	c, err := c.Validate()
	if err != nil {
		return Session{}, err
	}
	badLogin := apperrors.Unauthorized("invalid username or password")

	u, err := s.users.GetUserByUsername(ctx, c.Username)
	switch {
	case errors.Is(err, ports.ErrUserNotFound):
		if c.Username != models.AdminUsername || !s.isAdminSecret(c.Password) {
			return Session{}, badLogin
		}
		u, err = s.createAdmin(ctx)
		if err != nil {
			return Session{}, apperrors.Wrap(err, "auth.login", "could not provision admin")
		}
	case err != nil:
		return Session{}, apperrors.Wrap(err, "auth.login", "could not load user")
	default:
		if !CheckPassword(u.PasswordHash, c.Password) {
			return Session{}, badLogin
		}
	}

	if u.Username == models.AdminUsername && u.Role != models.RoleAdmin {
		u.Role = models.RoleAdmin
		if err := s.users.UpdateUser(ctx, u); err != nil {
			return Session{}, apperrors.Wrap(err, "auth.login", "could not promote admin")
		}
	}
	return s.session(u)
}

// EnsureAdmin creates the admin account from the bootstrap secret or repairs
// its role. With reset the stored password hash is replaced as well.
func (s *Service) EnsureAdmin(ctx context.Context, reset bool) (AdminAction, error) {
	u, err := s.users.GetUserByUsername(ctx, models.AdminUsername)
	if errors.Is(err, ports.ErrUserNotFound) {
		if _, err := s.createAdmin(ctx); err != nil {
			return "", err
		}
		return AdminCreated, nil
	}
	if err != nil {
		return "", err
	}

	updated := false
	if u.Role != models.RoleAdmin {
		u.Role = models.RoleAdmin
		updated = true
	}
	if reset {
		hash, err := HashPassword(s.adminPassword, s.cost)
		if err != nil {
			return "", err
		}
		u.PasswordHash = hash
		updated = true
	}
	if !updated {
		return AdminUnchanged, nil
	}
	if err := s.users.UpdateUser(ctx, u); err != nil {
		return "", err
	}
	return AdminUpdated, nil
}

func (s *Service) createAdmin(ctx context.Context) (models.User, error) {
	hash, err := HashPassword(s.adminPassword, s.cost)
	if err != nil {
		return models.User{}, err
	}
	u := models.User{
		ID:           s.newID(),
		Username:     models.AdminUsername,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		return models.User{}, err
	}
	return u, nil
}

func (s *Service) isAdminSecret(password string) bool {
	return s.adminPassword != "" &&
		subtle.ConstantTimeCompare([]byte(password), []byte(s.adminPassword)) == 1
}

func (s *Service) session(u models.User) (Session, error) {
	token, err := s.tokens.Issue(Identity{UserID: u.ID, Username: u.Username, Role: u.Role})
	if err != nil {
		return Session{}, apperrors.Wrap(err, "auth.session", "could not issue token")
	}
	return Session{Token: token, User: u.Public()}, nil
}

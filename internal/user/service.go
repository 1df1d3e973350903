package user

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/MikeMC777/ordenes-checkout/internal/apperr"
	"github.com/MikeMC777/ordenes-checkout/internal/identity"
)

// Service answers identity questions from the users table. It implements
// identity.Backend.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type CreateInput struct {
	Username  string
	Email     string
	Password  string
	Superuser bool
	Groups    []string
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*User, error) {
	in.Username, in.Email = strings.TrimSpace(in.Username), strings.TrimSpace(in.Email)
	if in.Username == "" || in.Email == "" || in.Password == "" {
		return nil, apperr.Validation("username, email and password are required")
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &User{
		ID:           uuid.NewString(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Superuser:    in.Superuser,
		Groups:       in.Groups,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Resolve maps a user id to its Principal. Unknown ids yield
// identity.ErrUnknownUser.
func (s *Service) Resolve(ctx context.Context, userID string) (*identity.Principal, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, identity.ErrUnknownUser
	}
	u, err := s.repo.GetByID(ctx, userID)
	if err == ErrNotFound {
		return nil, identity.ErrUnknownUser
	}
	if err != nil {
		return nil, err
	}
	return &identity.Principal{UserID: u.ID, IsManager: u.IsManager(), IsSuperuser: u.IsSuperuser()}, nil
}

// Authenticate checks an email/password pair. An unknown email is not an
// error, just ok=false.
func (s *Service) Authenticate(ctx context.Context, email, password string) (string, bool, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if err == ErrNotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if !CheckPassword(u.PasswordHash, password) {
		return "", false, nil
	}
	return u.ID, true, nil
}

func (s *Service) SetManager(ctx context.Context, userID string, manager bool) error {
	if manager {
		return s.repo.AddToGroup(ctx, userID, GroupManager)
	}
	return s.repo.RemoveFromGroup(ctx, userID, GroupManager)
}

package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/habitquest/backend/pkg/logger"
	"go.uber.org/zap"
)

const (
	DefaultSuggestionCount = 5
	generateAttempts       = 3
)

type Service interface {
	// EnsureUser returns the profile row for an authenticated identity,
	// creating it with a generated username on first sight.
	EnsureUser(ctx context.Context, id uuid.UUID, email string) (*User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
	GetProfile(ctx context.Context, username string) (*Profile, error)
	CheckUsername(ctx context.Context, username string) UsernameCheck
	SetUsername(ctx context.Context, id uuid.UUID, username string) (*Profile, ValidationResult, error)
}

type service struct {
	repo    Repository
	baseURL string
	logger  *logger.Logger
}

func NewService(repo Repository, profileBaseURL string, log *logger.Logger) Service {
	if log == nil {
		log = logger.NewNop()
	}
	return &service{
		repo:    repo,
		baseURL: profileBaseURL,
		logger:  log.Named("user"),
	}
}

func (s *service) exists(ctx context.Context, username string) (bool, error) {
	return s.repo.ExistsByUsername(ctx, username)
}

func (s *service) EnsureUser(ctx context.Context, id uuid.UUID, email string) (*User, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	u = &User{ID: id, Email: email, DisplayName: FormatUsername(SanitizeUsername(localPart(email)))}
	for i := 0; i < generateAttempts; i++ {
		candidate := GenerateUsernameFromEmail(email)
		if res := ValidateUsername(ctx, candidate, s.exists); res.Valid {
			u.Username = &candidate
			break
		}
	}
	if u.Username == nil {
		s.logger.Warn("Could not generate a username, leaving it unset",
			zap.String("user_id", id.String()))
	}

	if err := s.repo.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.logger.Info("User profile created", zap.String("user_id", id.String()))
	return u, nil
}

func localPart(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}

func (s *service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) GetProfile(ctx context.Context, username string) (*Profile, error) {
	u, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.profile(u), nil
}

func (s *service) profile(u *User) *Profile {
	p := &Profile{ID: u.ID, DisplayName: u.DisplayName, AvatarColor: u.AvatarColor}
	if u.Username != nil {
		p.Username = *u.Username
		p.URL = ProfileURL(p.Username, s.baseURL)
	}
	return p
}

// CheckUsername validates a candidate and, when it is rejected, offers
// alternatives that pass the same checks.
func (s *service) CheckUsername(ctx context.Context, username string) UsernameCheck {
	check := UsernameCheck{
		ValidationResult: ValidateUsername(ctx, username, s.exists),
		Username:         username,
	}
	if check.Valid {
		return check
	}

	for _, candidate := range GenerateUsernameSuggestions(username, DefaultSuggestionCount) {
		if ValidateUsername(ctx, candidate, s.exists).Valid {
			check.Suggestions = append(check.Suggestions, candidate)
		}
	}
	return check
}

// SetUsername claims username for the user. A rejected name comes back in
// the result with a nil error; the error is reserved for storage failures.
func (s *service) SetUsername(ctx context.Context, id uuid.UUID, username string) (*Profile, ValidationResult, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, ValidationResult{}, err
	}
	if u.Username != nil && *u.Username == username {
		return s.profile(u), ValidationResult{Valid: true}, nil
	}

	res := ValidateUsername(ctx, username, s.exists)
	if !res.Valid {
		return nil, res, nil
	}

	if err := s.repo.SetUsername(ctx, id, username); err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			return nil, ValidationResult{Error: msgTaken}, nil
		}
		s.logger.Error("Failed to set username",
			zap.String("user_id", id.String()),
			zap.Error(err))
		return nil, ValidationResult{}, fmt.Errorf("set username: %w", err)
	}

	u.Username = &username
	s.logger.Info("Username updated",
		zap.String("user_id", id.String()),
		zap.String("username", username))
	return s.profile(u), res, nil
}

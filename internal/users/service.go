package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jonboulle/clockwork"

	"github.com/2beens/workouttracker/internal/telemetry/tracing"
	"github.com/2beens/workouttracker/pkg"
)

var ErrWrongCredentials = errors.New("wrong credentials")

const (
	msgUsernameTaken = "Username is already registered to another user."
	msgEmailTaken    = "Email address is already registered to another user."
)

type usersRepo interface {
	Add(ctx context.Context, user User) (*User, error)
	Get(ctx context.Context, id int) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	Taken(ctx context.Context, username, email string, excludeID int) (usernameTaken, emailTaken bool, err error)
	Update(ctx context.Context, user *User) error
}

type Service struct {
	repo  usersRepo
	clock clockwork.Clock
}

func NewService(repo usersRepo, clock clockwork.Clock) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{
		repo:  repo,
		clock: clock,
	}
}

// Register validates the input (collecting every problem) and creates the user.
func (s *Service) Register(ctx context.Context, in RegisterInput) (_ *User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.users.register")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	msgs := in.Validate()
	usernameTaken, emailTaken, err := s.repo.Taken(ctx, in.Username, in.Email, 0)
	if err != nil {
		return nil, fmt.Errorf("check user taken: %w", err)
	}
	if usernameTaken {
		msgs.Add(msgUsernameTaken)
	}
	if emailTaken {
		msgs.Add(msgEmailTaken)
	}
	if err := msgs.Err(); err != nil {
		return nil, err
	}

	hash, err := pkg.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.clock.Now()
	user, err := s.repo.Add(ctx, User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		TOSAccept:    true,
		Level:        DefaultLevel,
		LevelName:    DefaultLevelName,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if verr := takenValidationError(err); verr != nil {
			return nil, verr
		}
		return nil, fmt.Errorf("add user: %w", err)
	}

	return user, nil
}

// Authenticate returns ErrWrongCredentials both for an unknown user and a wrong password.
func (s *Service) Authenticate(ctx context.Context, username, password string) (_ *User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.users.authenticate")
	defer func() {
		if errors.Is(err, ErrWrongCredentials) {
			span.End()
			return
		}
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if username == "" || password == "" {
		return nil, ErrWrongCredentials
	}

	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrWrongCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	if !pkg.CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrWrongCredentials
	}

	return user, nil
}

func (s *Service) Get(ctx context.Context, userID int) (*User, error) {
	return s.repo.Get(ctx, userID)
}

func (s *Service) UpdateSettings(ctx context.Context, userID int, in SettingsInput) (_ *User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.users.updatesettings")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	user, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	msgs := in.Validate()
	usernameTaken, emailTaken, err := s.repo.Taken(ctx, in.Username, in.Email, userID)
	if err != nil {
		return nil, fmt.Errorf("check user taken: %w", err)
	}
	if usernameTaken {
		msgs.Add(msgUsernameTaken)
	}
	if emailTaken {
		msgs.Add(msgEmailTaken)
	}
	if err := msgs.Err(); err != nil {
		return nil, err
	}

	user.Username = in.Username
	user.Email = in.Email
	if in.Password != "" {
		user.PasswordHash, err = pkg.HashPassword(in.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
	}
	user.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, user); err != nil {
		if verr := takenValidationError(err); verr != nil {
			return nil, verr
		}
		return nil, fmt.Errorf("update user: %w", err)
	}

	return user, nil
}

func takenValidationError(err error) error {
	switch {
	case errors.Is(err, ErrUsernameTaken):
		return pkg.NewValidationError(msgUsernameTaken)
	case errors.Is(err, ErrEmailTaken):
		return pkg.NewValidationError(msgEmailTaken)
	default:
		return nil
	}
}

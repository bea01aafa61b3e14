package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/workouttracker/internal/telemetry/tracing"
	"github.com/2beens/workouttracker/pkg"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrUsernameTaken = errors.New("username taken")
	ErrEmailTaken    = errors.New("email taken")
)

const (
	usernameUniqueConstr = "users_username_key"
	emailUniqueConstr    = "users_email_key"
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

const userColumns = `id, username, email, password_hash, tos_accept, level, level_name, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	u := &User{}
	if err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.TOSAccept,
		&u.Level, &u.LevelName, &u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *Repo) Add(ctx context.Context, user User) (_ *User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.users.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	created, err := scanUser(r.db.QueryRow(
		ctx,
		`INSERT INTO users (username, email, password_hash, tos_accept, level, level_name, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
			RETURNING `+userColumns,
		user.Username, user.Email, user.PasswordHash, user.TOSAccept, user.Level, user.LevelName, user.CreatedAt,
	))
	if err != nil {
		return nil, uniqueViolationErr(err)
	}

	span.SetAttributes(attribute.Int("user.id", created.ID))
	return created, nil
}

func (r *Repo) Get(ctx context.Context, id int) (_ *User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.users.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *Repo) GetByUsername(ctx context.Context, username string) (_ *User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.users.getbyusername")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
}

// Taken reports whether the username / email are already used by a user other than excludeID.
func (r *Repo) Taken(ctx context.Context, username, email string, excludeID int) (usernameTaken, emailTaken bool, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.users.taken")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	err = r.db.QueryRow(
		ctx,
		`SELECT
			EXISTS(SELECT 1 FROM users WHERE username = $1 AND id <> $3),
			EXISTS(SELECT 1 FROM users WHERE email = $2 AND id <> $3)`,
		username, email, excludeID,
	).Scan(&usernameTaken, &emailTaken)
	if err != nil {
		return false, false, err
	}
	return usernameTaken, emailTaken, nil
}

func (r *Repo) Update(ctx context.Context, user *User) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.users.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", user.ID))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE users SET username = $1, email = $2, password_hash = $3, updated_at = $4 WHERE id = $5;`,
		user.Username, user.Email, user.PasswordHash, user.UpdatedAt, user.ID,
	)
	if err != nil {
		return uniqueViolationErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// uniqueViolationErr maps a unique constraint violation (a registration race
// the Taken check could not see) to the matching sentinel error.
func uniqueViolationErr(err error) error {
	if !pkg.IsUniqueViolationError(err) {
		return err
	}
	switch pkg.ViolatedConstraint(err) {
	case usernameUniqueConstr:
		return fmt.Errorf("%w: %w", ErrUsernameTaken, err)
	case emailUniqueConstr:
		return fmt.Errorf("%w: %w", ErrEmailTaken, err)
	default:
		return err
	}
}

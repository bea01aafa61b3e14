package workouts

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/workouttracker/internal/telemetry/tracing"
)

var (
	ErrWorkoutNotFound  = errors.New("workout not found")
	ErrExerciseNotFound = errors.New("exercise not found")
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

const workoutColumns = `id, user_id, name, description, order_id, completed, created_at, updated_at`
const exerciseColumns = `id, workout_id, name, sets, repetitions, rpe, created_at, updated_at`

func scanWorkout(row pgx.Row) (*Workout, error) {
	w := &Workout{}
	if err := row.Scan(
		&w.ID, &w.UserID, &w.Name, &w.Description, &w.OrderID, &w.Completed, &w.CreatedAt, &w.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return w, nil
}

func scanExercise(row pgx.Row) (*Exercise, error) {
	e := &Exercise{}
	if err := row.Scan(
		&e.ID, &e.WorkoutID, &e.Name, &e.Sets, &e.Repetitions, &e.RPE, &e.CreatedAt, &e.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return e, nil
}

// queryer is satisfied by both the pool and a transaction.
type queryer interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertWorkout(ctx context.Context, q queryer, workout Workout) (*Workout, error) {
	return scanWorkout(q.QueryRow(
		ctx,
		`INSERT INTO workouts (user_id, name, description, order_id, completed, created_at, updated_at)
			VALUES ($1, $2, $3, $4, FALSE, $5, $5)
			RETURNING `+workoutColumns,
		workout.UserID, workout.Name, workout.Description, workout.OrderID, workout.CreatedAt,
	))
}

func insertExercise(ctx context.Context, q queryer, exercise Exercise) (*Exercise, error) {
	return scanExercise(q.QueryRow(
		ctx,
		`INSERT INTO exercises (workout_id, name, sets, repetitions, rpe, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $6)
			RETURNING `+exerciseColumns,
		exercise.WorkoutID, exercise.Name, exercise.Sets, exercise.Repetitions, exercise.RPE, exercise.CreatedAt,
	))
}

func (r *Repo) AddWorkout(ctx context.Context, workout Workout) (_ *Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	created, err := insertWorkout(ctx, r.db, workout)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("workout.id", created.ID))
	return created, nil
}

func (r *Repo) UpdateWorkout(ctx context.Context, workout *Workout) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", workout.ID))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE workouts SET name = $1, description = $2, order_id = $3, updated_at = $4
			WHERE id = $5 AND user_id = $6;`,
		workout.Name, workout.Description, workout.OrderID, workout.UpdatedAt, workout.ID, workout.UserID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrWorkoutNotFound
	}
	return nil
}

func (r *Repo) DeleteWorkout(ctx context.Context, userID, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	tag, err := r.db.Exec(ctx, `DELETE FROM workouts WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrWorkoutNotFound
	}
	return nil
}

// GetWorkout returns the workout with its exercises, most recently updated first.
func (r *Repo) GetWorkout(ctx context.Context, userID, id int) (_ *Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	workout, err := scanWorkout(r.db.QueryRow(
		ctx,
		`SELECT `+workoutColumns+` FROM workouts WHERE id = $1 AND user_id = $2`,
		id, userID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWorkoutNotFound
		}
		return nil, err
	}

	rows, err := r.db.Query(
		ctx,
		`SELECT `+exerciseColumns+` FROM exercises WHERE workout_id = $1 ORDER BY updated_at DESC, id DESC`,
		workout.ID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	workout.Exercises = make([]Exercise, 0)
	for rows.Next() {
		e, err := scanExercise(rows)
		if err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		workout.Exercises = append(workout.Exercises, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return workout, nil
}

func (r *Repo) listWorkouts(ctx context.Context, sql string, args ...any) ([]Workout, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	workouts := make([]Workout, 0)
	for rows.Next() {
		w, err := scanWorkout(rows)
		if err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		workouts = append(workouts, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return workouts, nil
}

// ListWorkouts returns a page of the user's workouts ordered by order id.
func (r *Repo) ListWorkouts(ctx context.Context, userID, limit, offset int) (_ []Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("limit", limit), attribute.Int("offset", offset))

	return r.listWorkouts(
		ctx,
		`SELECT `+workoutColumns+` FROM workouts WHERE user_id = $1 ORDER BY order_id, id LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
}

func (r *Repo) CountWorkouts(ctx context.Context, userID int) (_ int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.count")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM workouts WHERE user_id = $1`, userID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// RecentWorkouts returns the newest workouts by id.
func (r *Repo) RecentWorkouts(ctx context.Context, userID, limit int) (_ []Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.recent")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	return r.listWorkouts(
		ctx,
		`SELECT `+workoutColumns+` FROM workouts WHERE user_id = $1 ORDER BY id DESC LIMIT $2`,
		userID, limit,
	)
}

// AddExercise inserts the exercise only if its workout belongs to the user.
func (r *Repo) AddExercise(ctx context.Context, userID int, exercise Exercise) (_ *Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.exercises.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("workout.id", exercise.WorkoutID))

	created, err := scanExercise(r.db.QueryRow(
		ctx,
		`INSERT INTO exercises (workout_id, name, sets, repetitions, rpe, created_at, updated_at)
			SELECT w.id, $3, $4, $5, $6, $7, $7 FROM workouts w WHERE w.id = $1 AND w.user_id = $2
			RETURNING `+exerciseColumns,
		exercise.WorkoutID, userID, exercise.Name, exercise.Sets, exercise.Repetitions, exercise.RPE, exercise.CreatedAt,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWorkoutNotFound
		}
		return nil, err
	}
	return created, nil
}

func (r *Repo) UpdateExercise(ctx context.Context, userID int, exercise *Exercise) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.exercises.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", exercise.ID))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE exercises e SET name = $1, sets = $2, repetitions = $3, rpe = $4, updated_at = $5
			FROM workouts w
			WHERE e.id = $6 AND e.workout_id = $7 AND w.id = e.workout_id AND w.user_id = $8;`,
		exercise.Name, exercise.Sets, exercise.Repetitions, exercise.RPE, exercise.UpdatedAt,
		exercise.ID, exercise.WorkoutID, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrExerciseNotFound
	}
	return nil
}

func (r *Repo) DeleteExercise(ctx context.Context, userID, workoutID, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.exercises.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM exercises e USING workouts w
			WHERE e.id = $1 AND e.workout_id = $2 AND w.id = e.workout_id AND w.user_id = $3`,
		id, workoutID, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrExerciseNotFound
	}
	return nil
}

// ImportWorkouts creates the workouts with their exercises in a single transaction.
func (r *Repo) ImportWorkouts(ctx context.Context, workouts []Workout) (_ []Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.import")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("workouts", len(workouts)))

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
				err = fmt.Errorf("failed to rollback transaction: %w: %w", rollbackErr, err)
			}
		} else {
			err = tx.Commit(ctx)
		}
	}()

	imported := make([]Workout, 0, len(workouts))
	for _, w := range workouts {
		created, err := insertWorkout(ctx, tx, w)
		if err != nil {
			return nil, fmt.Errorf("insert workout %q: %w", w.Name, err)
		}
		created.Exercises = make([]Exercise, 0, len(w.Exercises))
		for _, e := range w.Exercises {
			e.WorkoutID = created.ID
			createdExercise, err := insertExercise(ctx, tx, e)
			if err != nil {
				return nil, fmt.Errorf("insert exercise %q: %w", e.Name, err)
			}
			created.Exercises = append(created.Exercises, *createdExercise)
		}
		imported = append(imported, *created)
	}

	return imported, nil
}

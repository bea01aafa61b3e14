package training

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/workouttracker/internal/telemetry/tracing"
	"github.com/2beens/workouttracker/internal/workouts"
	"github.com/2beens/workouttracker/pkg"
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// dbtx is satisfied by both the pool and a transaction.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const sessionColumns = `ws.id, ws.user_id, ws.workout_id, w.name, ws.completed, ws.created_at`

const exerciseSessionColumns = `es.id, es.workout_session_id, es.exercise_id, e.name, es.weight_used, es.actual_repetitions, es.sets, es.rpe`

const historyColumns = `id, user_id, session_id, workout_id, workout_name, completed_at`

const exerciseHistoryColumns = `id, workout_history_id, exercise_id, exercise_name, weight_used, repetitions, sets, rpe`

func scanSession(row pgx.Row) (*WorkoutSession, error) {
	s := &WorkoutSession{}
	if err := row.Scan(&s.ID, &s.UserID, &s.WorkoutID, &s.WorkoutName, &s.Completed, &s.CreatedAt); err != nil {
		return nil, err
	}
	return s, nil
}

func scanExerciseSession(row pgx.Row) (*ExerciseSession, error) {
	es := &ExerciseSession{}
	if err := row.Scan(
		&es.ID, &es.WorkoutSessionID, &es.ExerciseID, &es.ExerciseName,
		&es.WeightUsed, &es.ActualRepetitions, &es.Sets, &es.RPE,
	); err != nil {
		return nil, err
	}
	return es, nil
}

func scanHistory(row pgx.Row) (*WorkoutHistory, error) {
	h := &WorkoutHistory{}
	if err := row.Scan(&h.ID, &h.UserID, &h.SessionID, &h.WorkoutID, &h.WorkoutName, &h.CompletedAt); err != nil {
		return nil, err
	}
	return h, nil
}

// rpeParam maps the "keep the exercise RPE" zero value to NULL.
func rpeParam(p Performance) *int {
	if p.RPE == 0 {
		return nil
	}
	return &p.RPE
}

// OrderedWorkouts returns all of the user's workouts in rotation order.
func (r *Repo) OrderedWorkouts(ctx context.Context, userID int) (_ []workouts.Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.training.workouts.ordered")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`SELECT id, user_id, name, description, order_id, completed, created_at, updated_at
			FROM workouts WHERE user_id = $1 ORDER BY order_id, id`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ordered := make([]workouts.Workout, 0)
	for rows.Next() {
		var w workouts.Workout
		if err := rows.Scan(
			&w.ID, &w.UserID, &w.Name, &w.Description, &w.OrderID, &w.Completed, &w.CreatedAt, &w.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		ordered = append(ordered, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ordered, nil
}

// ResetCompleted marks all the user's workouts as pending again.
func (r *Repo) ResetCompleted(ctx context.Context, userID int) (_ int64, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.training.workouts.reset")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	tag, err := r.db.Exec(ctx, `UPDATE workouts SET completed = FALSE WHERE user_id = $1 AND completed`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// LastSession returns the user's most recent session, without its exercises.
func (r *Repo) LastSession(ctx context.Context, userID int) (_ *WorkoutSession, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.training.sessions.last")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	session, err := scanSession(r.db.QueryRow(
		ctx,
		`SELECT `+sessionColumns+`
			FROM workout_sessions ws JOIN workouts w ON w.id = ws.workout_id
			WHERE ws.user_id = $1
			ORDER BY ws.created_at DESC, ws.id DESC
			LIMIT 1`,
		userID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return session, nil
}

// CreateSession creates the session together with one exercise session per exercise of the workout.
func (r *Repo) CreateSession(ctx context.Context, userID, workoutID int, createdAt time.Time) (_ *WorkoutSession, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.training.sessions.create")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("workout.id", workoutID))

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

	session := &WorkoutSession{
		UserID:    userID,
		WorkoutID: workoutID,
		CreatedAt: createdAt,
	}
	if err := tx.QueryRow(
		ctx,
		`SELECT name FROM workouts WHERE id = $1 AND user_id = $2`,
		workoutID, userID,
	).Scan(&session.WorkoutName); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, workouts.ErrWorkoutNotFound
		}
		return nil, fmt.Errorf("get workout: %w", err)
	}

	if err := tx.QueryRow(
		ctx,
		`INSERT INTO workout_sessions (user_id, workout_id, completed, created_at)
			VALUES ($1, $2, FALSE, $3) RETURNING id`,
		userID, workoutID, createdAt,
	).Scan(&session.ID); err != nil {
		// workout deleted in the meantime
		if pkg.IsForeignKeyViolationError(err) {
			return nil, workouts.ErrWorkoutNotFound
		}
		return nil, fmt.Errorf("insert session: %w", err)
	}

	if _, err := tx.Exec(
		ctx,
		`INSERT INTO exercise_sessions (workout_session_id, exercise_id, weight_used, actual_repetitions, sets, rpe)
			SELECT $1, e.id, 0, 0, e.sets, e.rpe FROM exercises e WHERE e.workout_id = $2`,
		session.ID, workoutID,
	); err != nil {
		return nil, fmt.Errorf("insert exercise sessions: %w", err)
	}

	session.Exercises, err = exerciseSessions(ctx, tx, session.ID)
	if err != nil {
		return nil, err
	}

	return session, nil
}

func exerciseSessions(ctx context.Context, q dbtx, sessionID int) ([]ExerciseSession, error) {
	rows, err := q.Query(
		ctx,
		`SELECT `+exerciseSessionColumns+`
			FROM exercise_sessions es JOIN exercises e ON e.id = es.exercise_id
			WHERE es.workout_session_id = $1
			ORDER BY es.id`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	exercises := make([]ExerciseSession, 0)
	for rows.Next() {
		es, err := scanExerciseSession(rows)
		if err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		exercises = append(exercises, *es)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return exercises, nil
}

func exerciseSeries(ctx context.Context, q dbtx, exerciseSessionIDs ...int) (map[int][]Series, error) {
	rows, err := q.Query(
		ctx,
		`SELECT id, exercise_session_id, set_number, weight_used, repetitions
			FROM series WHERE exercise_session_id = ANY($1)
			ORDER BY exercise_session_id, set_number`,
		exerciseSessionIDs,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	series := make(map[int][]Series)
	for rows.Next() {
		var s Series
		if err := rows.Scan(&s.ID, &s.ExerciseSessionID, &s.SetNumber, &s.WeightUsed, &s.Repetitions); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		series[s.ExerciseSessionID] = append(series[s.ExerciseSessionID], s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return series, nil
}

// GetSession returns the session with its exercise sessions and their series.
func (r *Repo) GetSession(ctx context.Context, userID, sessionID int) (_ *WorkoutSession, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.training.sessions.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("session.id", sessionID))

	session, err := scanSession(r.db.QueryRow(
		ctx,
		`SELECT `+sessionColumns+`
			FROM workout_sessions ws JOIN workouts w ON w.id = ws.workout_id
			WHERE ws.id = $1 AND ws.user_id = $2`,
		sessionID, userID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	session.Exercises, err = exerciseSessions(ctx, r.db, session.ID)
	if err != nil {
		return nil, fmt.Errorf("exercise sessions: %w", err)
	}

	ids := make([]int, 0, len(session.Exercises))
	for _, es := range session.Exercises {
		ids = append(ids, es.ID)
	}
	series, err := exerciseSeries(ctx, r.db, ids...)
	if err != nil {
		return nil, fmt.Errorf("series: %w", err)
	}
	for i := range session.Exercises {
		session.Exercises[i].Series = series[session.Exercises[i].ID]
	}

	return session, nil
}

// sessionStateErr explains why a statement guarded by owner and "not completed" matched nothing.
func sessionStateErr(ctx context.Context, q dbtx, userID, sessionID int) error {
	var completed bool
	err := q.QueryRow(
		ctx,
		`SELECT completed FROM workout_sessions WHERE id = $1 AND user_id = $2`,
		sessionID, userID,
	).Scan(&completed)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return ErrSessionNotFound
	case err != nil:
		return err
	case completed:
		return ErrSessionCompleted
	default:
		return ErrExerciseSessionNotFound
	}
}

// UpdatePerformance stores the performed values of one exercise in an in-progress session.
func (r *Repo) UpdatePerformance(ctx context.Context, userID, sessionID, exerciseID int, p Performance) (_ *ExerciseSession, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.training.sessions.performance")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("session.id", sessionID), attribute.Int("exercise.id", exerciseID))

	es, err := scanExerciseSession(r.db.QueryRow(
		ctx,
		`UPDATE exercise_sessions es
			SET weight_used = $4, actual_repetitions = $5, rpe = COALESCE($6::int, e.rpe)
			FROM workout_sessions ws, exercises e
			WHERE ws.id = es.workout_session_id AND e.id = es.exercise_id
				AND ws.id = $1 AND ws.user_id = $2 AND NOT ws.completed AND es.exercise_id = $3
			RETURNING `+exerciseSessionColumns,
		sessionID, userID, exerciseID, p.Weight, p.Repetitions, rpeParam(p),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sessionStateErr(ctx, r.db, userID, sessionID)
		}
		return nil, err
	}
	return es, nil
}

// ReplaceSeries swaps all recorded sets of one exercise and copies the last set into the exercise session.
func (r *Repo) ReplaceSeries(ctx context.Context, userID, sessionID, exerciseID int, series []Series) (_ *ExerciseSession, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.training.sessions.series")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("session.id", sessionID), attribute.Int("sets", len(series)))

	if len(series) == 0 {
		return nil, errors.New("no series to store")
	}

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

	last := series[len(series)-1]
	es, err := scanExerciseSession(tx.QueryRow(
		ctx,
		`UPDATE exercise_sessions es
			SET weight_used = $4, actual_repetitions = $5
			FROM workout_sessions ws, exercises e
			WHERE ws.id = es.workout_session_id AND e.id = es.exercise_id
				AND ws.id = $1 AND ws.user_id = $2 AND NOT ws.completed AND es.exercise_id = $3
			RETURNING `+exerciseSessionColumns,
		sessionID, userID, exerciseID, last.WeightUsed, last.Repetitions,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sessionStateErr(ctx, tx, userID, sessionID)
		}
		return nil, err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM series WHERE exercise_session_id = $1`, es.ID); err != nil {
		return nil, fmt.Errorf("delete series: %w", err)
	}

	es.Series = make([]Series, 0, len(series))
	for _, s := range series {
		s.ExerciseSessionID = es.ID
		if err := tx.QueryRow(
			ctx,
			`INSERT INTO series (exercise_session_id, set_number, weight_used, repetitions)
				VALUES ($1, $2, $3, $4) RETURNING id`,
			s.ExerciseSessionID, s.SetNumber, s.WeightUsed, s.Repetitions,
		).Scan(&s.ID); err != nil {
			return nil, fmt.Errorf("insert series %d: %w", s.SetNumber, err)
		}
		es.Series = append(es.Series, s)
	}

	return es, nil
}

// CompleteSession closes an in-progress session and snapshots it into the history, all in one transaction.
// Overrides are keyed by exercise id and replace the stored values before the snapshot is taken.
func (r *Repo) CompleteSession(
	ctx context.Context,
	userID, sessionID int,
	overrides map[int]Performance,
	completedAt time.Time,
) (_ *WorkoutHistory, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.training.sessions.complete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("session.id", sessionID), attribute.Int("overrides", len(overrides)))

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

	var workoutID int
	if err := tx.QueryRow(
		ctx,
		`UPDATE workout_sessions SET completed = TRUE
			WHERE id = $1 AND user_id = $2 AND NOT completed
			RETURNING workout_id`,
		sessionID, userID,
	).Scan(&workoutID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sessionStateErr(ctx, tx, userID, sessionID)
		}
		return nil, fmt.Errorf("complete session: %w", err)
	}

	var workoutName string
	if err := tx.QueryRow(
		ctx,
		`UPDATE workouts SET completed = TRUE WHERE id = $1 AND user_id = $2 RETURNING name`,
		workoutID, userID,
	).Scan(&workoutName); err != nil {
		return nil, fmt.Errorf("complete workout %d: %w", workoutID, err)
	}

	for _, exerciseID := range slices.Sorted(maps.Keys(overrides)) {
		p := overrides[exerciseID]
		if _, err := tx.Exec(
			ctx,
			`UPDATE exercise_sessions es
				SET weight_used = $3, actual_repetitions = $4, rpe = COALESCE($5::int, e.rpe)
				FROM exercises e
				WHERE e.id = es.exercise_id AND es.workout_session_id = $1 AND es.exercise_id = $2`,
			sessionID, exerciseID, p.Weight, p.Repetitions, rpeParam(p),
		); err != nil {
			return nil, fmt.Errorf("override exercise %d: %w", exerciseID, err)
		}
	}

	var historyID int
	if err := tx.QueryRow(
		ctx,
		`INSERT INTO workout_histories (user_id, session_id, workout_id, workout_name, completed_at)
			VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		userID, sessionID, workoutID, workoutName, completedAt,
	).Scan(&historyID); err != nil {
		return nil, fmt.Errorf("insert workout history: %w", err)
	}

	if _, err := tx.Exec(
		ctx,
		`INSERT INTO exercise_histories (workout_history_id, exercise_id, exercise_name, weight_used, repetitions, sets, rpe)
			SELECT $1, es.exercise_id, e.name, es.weight_used, es.actual_repetitions, es.sets, es.rpe
			FROM exercise_sessions es JOIN exercises e ON e.id = es.exercise_id
			WHERE es.workout_session_id = $2
			ORDER BY es.id`,
		historyID, sessionID,
	); err != nil {
		return nil, fmt.Errorf("insert exercise histories: %w", err)
	}

	return getHistory(ctx, tx, userID, historyID)
}

func getHistory(ctx context.Context, q dbtx, userID, historyID int) (*WorkoutHistory, error) {
	history, err := scanHistory(q.QueryRow(
		ctx,
		`SELECT `+historyColumns+` FROM workout_histories WHERE id = $1 AND user_id = $2`,
		historyID, userID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrHistoryNotFound
		}
		return nil, err
	}

	rows, err := q.Query(
		ctx,
		`SELECT `+exerciseHistoryColumns+` FROM exercise_histories WHERE workout_history_id = $1 ORDER BY id`,
		history.ID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history.Exercises = make([]ExerciseHistory, 0)
	for rows.Next() {
		var eh ExerciseHistory
		if err := rows.Scan(
			&eh.ID, &eh.WorkoutHistoryID, &eh.ExerciseID, &eh.ExerciseName,
			&eh.WeightUsed, &eh.Repetitions, &eh.Sets, &eh.RPE,
		); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		history.Exercises = append(history.Exercises, eh)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return history, nil
}

func (r *Repo) GetHistory(ctx context.Context, userID, historyID int) (_ *WorkoutHistory, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.training.history.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("history.id", historyID))

	return getHistory(ctx, r.db, userID, historyID)
}

// ListHistory returns a page of the user's histories, newest first, without exercise rows.
func (r *Repo) ListHistory(ctx context.Context, userID, limit, offset int) (_ []WorkoutHistory, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.training.history.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("limit", limit), attribute.Int("offset", offset))

	rows, err := r.db.Query(
		ctx,
		`SELECT `+historyColumns+` FROM workout_histories
			WHERE user_id = $1
			ORDER BY completed_at DESC, id DESC
			LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	histories := make([]WorkoutHistory, 0)
	for rows.Next() {
		h, err := scanHistory(rows)
		if err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		histories = append(histories, *h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return histories, nil
}

func (r *Repo) CountHistory(ctx context.Context, userID int) (_ int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.training.history.count")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM workout_histories WHERE user_id = $1`, userID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

package training

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/workouttracker/internal/telemetry/metrics"
	"github.com/2beens/workouttracker/internal/telemetry/tracing"
	"github.com/2beens/workouttracker/internal/workouts"
	"github.com/2beens/workouttracker/pkg"
)

const DefaultHistoryPageSize = 12

type trainingRepo interface {
	OrderedWorkouts(ctx context.Context, userID int) ([]workouts.Workout, error)
	ResetCompleted(ctx context.Context, userID int) (int64, error)
	LastSession(ctx context.Context, userID int) (*WorkoutSession, error)
	CreateSession(ctx context.Context, userID, workoutID int, createdAt time.Time) (*WorkoutSession, error)
	GetSession(ctx context.Context, userID, sessionID int) (*WorkoutSession, error)
	UpdatePerformance(ctx context.Context, userID, sessionID, exerciseID int, p Performance) (*ExerciseSession, error)
	ReplaceSeries(ctx context.Context, userID, sessionID, exerciseID int, series []Series) (*ExerciseSession, error)
	CompleteSession(ctx context.Context, userID, sessionID int, overrides map[int]Performance, completedAt time.Time) (*WorkoutHistory, error)
	GetHistory(ctx context.Context, userID, historyID int) (*WorkoutHistory, error)
	ListHistory(ctx context.Context, userID, limit, offset int) ([]WorkoutHistory, error)
	CountHistory(ctx context.Context, userID int) (int, error)
}

type Service struct {
	repo           trainingRepo
	clock          clockwork.Clock
	metricsManager *metrics.Manager
}

func NewService(repo trainingRepo, clock clockwork.Clock, metricsManager *metrics.Manager) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{
		repo:           repo,
		clock:          clock,
		metricsManager: metricsManager,
	}
}

// StartSession opens a session for the workout, with one zeroed exercise session per exercise.
func (s *Service) StartSession(ctx context.Context, userID, workoutID int) (_ *WorkoutSession, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.training.sessions.start")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("workout.id", workoutID))

	session, err := s.repo.CreateSession(ctx, userID, workoutID, s.clock.Now())
	if err != nil {
		return nil, err
	}

	if s.metricsManager != nil {
		s.metricsManager.CounterSessionsStarted.Inc()
	}
	log.Debugf("user %d started session %d for workout %d", userID, session.ID, workoutID)

	return session, nil
}

func (s *Service) GetSession(ctx context.Context, userID, sessionID int) (*WorkoutSession, error) {
	return s.repo.GetSession(ctx, userID, sessionID)
}

func (s *Service) RecordPerformance(ctx context.Context, userID, sessionID, exerciseID int, in PerformanceInput) (_ *ExerciseSession, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.training.sessions.performance")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	p, msgs := in.Parse()
	if err := msgs.Err(); err != nil {
		return nil, err
	}

	return s.repo.UpdatePerformance(ctx, userID, sessionID, exerciseID, p)
}

func (s *Service) RecordSeries(ctx context.Context, userID, sessionID, exerciseID int, in []SeriesInput) (_ *ExerciseSession, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.training.sessions.series")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	series, msgs := ParseSeries(in)
	if err := msgs.Err(); err != nil {
		return nil, err
	}

	return s.repo.ReplaceSeries(ctx, userID, sessionID, exerciseID, series)
}

// CompleteSession closes the session and records it in the history. Overrides, keyed by
// exercise id, are all validated before anything is written.
func (s *Service) CompleteSession(ctx context.Context, userID, sessionID int, overrides map[int]PerformanceInput) (_ *WorkoutHistory, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.training.sessions.complete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("session.id", sessionID))

	var msgs pkg.Messages
	parsed := make(map[int]Performance, len(overrides))
	for _, exerciseID := range slices.Sorted(maps.Keys(overrides)) {
		p, pMsgs := overrides[exerciseID].Parse()
		for _, m := range pMsgs {
			msgs.Add(fmt.Sprintf("Exercise %d: %s", exerciseID, m))
		}
		parsed[exerciseID] = p
	}
	if err := msgs.Err(); err != nil {
		return nil, err
	}

	history, err := s.repo.CompleteSession(ctx, userID, sessionID, parsed, s.clock.Now())
	if err != nil {
		return nil, err
	}

	if s.metricsManager != nil {
		s.metricsManager.CounterSessionsCompleted.Inc()
	}
	log.Debugf("user %d completed session %d, history %d", userID, sessionID, history.ID)

	return history, nil
}

func (s *Service) GetHistory(ctx context.Context, userID, historyID int) (*WorkoutHistory, error) {
	return s.repo.GetHistory(ctx, userID, historyID)
}

// ListHistory returns a page of completed sessions, newest first.
func (s *Service) ListHistory(ctx context.Context, userID, page, size int) (_ *HistoryPage, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.training.history.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if size <= 0 {
		size = DefaultHistoryPageSize
	}

	total, err := s.repo.CountHistory(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count history: %w", err)
	}

	page, offset := pkg.PageOffset(page, size, total)
	histories, err := s.repo.ListHistory(ctx, userID, size, offset)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}

	return &HistoryPage{
		Histories: histories,
		Page:      page,
		Size:      size,
		Total:     total,
	}, nil
}

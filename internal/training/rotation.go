package training

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/workouttracker/internal/telemetry/tracing"
	"github.com/2beens/workouttracker/internal/workouts"
)

// NextWorkout returns the workout that follows the one trained in the user's last session,
// wrapping around after the last workout. It returns nil when the user has no workouts.
// When every workout is completed, all of them are reset to pending first.
func (s *Service) NextWorkout(ctx context.Context, userID int) (_ *workouts.Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.training.next")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	ordered, err := s.repo.OrderedWorkouts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ordered workouts: %w", err)
	}
	if len(ordered) == 0 {
		return nil, nil
	}

	if allCompleted(ordered) {
		reset, err := s.repo.ResetCompleted(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("reset completed workouts: %w", err)
		}
		for i := range ordered {
			ordered[i].Completed = false
		}
		if s.metricsManager != nil {
			s.metricsManager.CounterRotationResets.Inc()
		}
		log.Debugf("user %d completed all workouts, %d reset to pending", userID, reset)
	}

	last, err := s.repo.LastSession(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return &ordered[0], nil
		}
		return nil, fmt.Errorf("last session: %w", err)
	}

	next := nextInRotation(ordered, last.WorkoutID)
	span.SetAttributes(attribute.Int("workout.id", next.ID))
	return next, nil
}

func allCompleted(ordered []workouts.Workout) bool {
	for _, w := range ordered {
		if !w.Completed {
			return false
		}
	}
	return true
}

// nextInRotation picks the workout after lastWorkoutID; an unknown id restarts the rotation.
func nextInRotation(ordered []workouts.Workout, lastWorkoutID int) *workouts.Workout {
	for i, w := range ordered {
		if w.ID == lastWorkoutID {
			return &ordered[(i+1)%len(ordered)]
		}
	}
	return &ordered[0]
}

// CurrentSession resumes the user's latest session while it is in progress, otherwise it
// starts a session for the next workout in the rotation and reports created as true.
func (s *Service) CurrentSession(ctx context.Context, userID int) (_ *WorkoutSession, created bool, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.training.current")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	inProgress, err := s.InProgressSession(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	if inProgress != nil {
		session, err := s.repo.GetSession(ctx, userID, inProgress.ID)
		if err != nil {
			return nil, false, fmt.Errorf("get session %d: %w", inProgress.ID, err)
		}
		return session, false, nil
	}

	next, err := s.NextWorkout(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	if next == nil {
		return nil, false, ErrNoWorkouts
	}

	session, err := s.StartSession(ctx, userID, next.ID)
	if err != nil {
		return nil, false, err
	}
	return session, true, nil
}

// InProgressSession returns the user's latest session if it is not completed yet, or nil.
func (s *Service) InProgressSession(ctx context.Context, userID int) (*WorkoutSession, error) {
	last, err := s.repo.LastSession(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("last session: %w", err)
	}
	if last.Completed {
		return nil, nil
	}
	return last, nil
}

package workouts

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/workouttracker/internal/telemetry/metrics"
	"github.com/2beens/workouttracker/internal/telemetry/tracing"
	"github.com/2beens/workouttracker/pkg"
)

const (
	DefaultPageSize    = 12
	RecentWorkoutsSize = 4
)

type workoutsRepo interface {
	AddWorkout(ctx context.Context, workout Workout) (*Workout, error)
	UpdateWorkout(ctx context.Context, workout *Workout) error
	DeleteWorkout(ctx context.Context, userID, id int) error
	GetWorkout(ctx context.Context, userID, id int) (*Workout, error)
	ListWorkouts(ctx context.Context, userID, limit, offset int) ([]Workout, error)
	CountWorkouts(ctx context.Context, userID int) (int, error)
	RecentWorkouts(ctx context.Context, userID, limit int) ([]Workout, error)
	AddExercise(ctx context.Context, userID int, exercise Exercise) (*Exercise, error)
	UpdateExercise(ctx context.Context, userID int, exercise *Exercise) error
	DeleteExercise(ctx context.Context, userID, workoutID, id int) error
	ImportWorkouts(ctx context.Context, workouts []Workout) ([]Workout, error)
}

type Page struct {
	Workouts []Workout `json:"workouts"`
	Page     int       `json:"page"`
	Size     int       `json:"size"`
	Total    int       `json:"total"`
}

type Service struct {
	repo           workoutsRepo
	clock          clockwork.Clock
	metricsManager *metrics.Manager
	pageSize       int
}

func NewService(repo workoutsRepo, clock clockwork.Clock, metricsManager *metrics.Manager) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{
		repo:           repo,
		clock:          clock,
		metricsManager: metricsManager,
		pageSize:       DefaultPageSize,
	}
}

// WithPageSize overrides the default page size used when a list request carries none.
func (s *Service) WithPageSize(size int) *Service {
	if size > 0 {
		s.pageSize = size
	}
	return s
}

func (s *Service) CreateWorkout(ctx context.Context, userID int, in WorkoutInput) (_ *Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.workouts.create")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if err := in.Validate().Err(); err != nil {
		return nil, err
	}

	workout, err := s.repo.AddWorkout(ctx, Workout{
		UserID:      userID,
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		OrderID:     in.OrderID,
		CreatedAt:   s.clock.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("add workout: %w", err)
	}
	return workout, nil
}

func (s *Service) UpdateWorkout(ctx context.Context, userID, workoutID int, in WorkoutInput) (_ *Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.workouts.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if err := in.Validate().Err(); err != nil {
		return nil, err
	}

	workout, err := s.repo.GetWorkout(ctx, userID, workoutID)
	if err != nil {
		return nil, err
	}

	workout.Name = strings.TrimSpace(in.Name)
	workout.Description = strings.TrimSpace(in.Description)
	workout.OrderID = in.OrderID
	workout.UpdatedAt = s.clock.Now()
	if err := s.repo.UpdateWorkout(ctx, workout); err != nil {
		return nil, err
	}
	return workout, nil
}

func (s *Service) DeleteWorkout(ctx context.Context, userID, workoutID int) error {
	return s.repo.DeleteWorkout(ctx, userID, workoutID)
}

func (s *Service) GetWorkout(ctx context.Context, userID, workoutID int) (*Workout, error) {
	return s.repo.GetWorkout(ctx, userID, workoutID)
}

// ListWorkouts returns the requested page; a page past the end yields the last page.
func (s *Service) ListWorkouts(ctx context.Context, userID, page, size int) (_ *Page, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.workouts.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if size <= 0 {
		size = s.pageSize
	}

	total, err := s.repo.CountWorkouts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count workouts: %w", err)
	}

	page, offset := pkg.PageOffset(page, size, total)
	workouts, err := s.repo.ListWorkouts(ctx, userID, size, offset)
	if err != nil {
		return nil, fmt.Errorf("list workouts: %w", err)
	}

	return &Page{
		Workouts: workouts,
		Page:     page,
		Size:     size,
		Total:    total,
	}, nil
}

func (s *Service) RecentWorkouts(ctx context.Context, userID int) ([]Workout, error) {
	return s.repo.RecentWorkouts(ctx, userID, RecentWorkoutsSize)
}

func (s *Service) AddExercise(ctx context.Context, userID, workoutID int, in ExerciseInput) (_ *Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.workouts.exercises.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	exercise, msgs := in.Parse()
	if err := msgs.Err(); err != nil {
		return nil, err
	}

	exercise.WorkoutID = workoutID
	exercise.CreatedAt = s.clock.Now()
	return s.repo.AddExercise(ctx, userID, exercise)
}

func (s *Service) UpdateExercise(ctx context.Context, userID, workoutID, exerciseID int, in ExerciseInput) (_ *Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.workouts.exercises.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	exercise, msgs := in.Parse()
	if err := msgs.Err(); err != nil {
		return nil, err
	}

	exercise.ID = exerciseID
	exercise.WorkoutID = workoutID
	exercise.UpdatedAt = s.clock.Now()
	if err := s.repo.UpdateExercise(ctx, userID, &exercise); err != nil {
		return nil, err
	}
	return &exercise, nil
}

func (s *Service) DeleteExercise(ctx context.Context, userID, workoutID, exerciseID int) error {
	return s.repo.DeleteExercise(ctx, userID, workoutID, exerciseID)
}

// ImportRows creates one workout per distinct order id, all or nothing.
func (s *Service) ImportRows(ctx context.Context, userID int, rows []ImportRow) (_ []Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.workouts.import")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if len(rows) == 0 {
		return nil, pkg.NewValidationError("The spreadsheet has no exercises to import.")
	}

	workouts, err := groupImportRows(userID, rows)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	for i := range workouts {
		workouts[i].CreatedAt = now
		for j := range workouts[i].Exercises {
			workouts[i].Exercises[j].CreatedAt = now
		}
	}

	imported, err := s.repo.ImportWorkouts(ctx, workouts)
	if err != nil {
		return nil, fmt.Errorf("import workouts: %w", err)
	}

	if s.metricsManager != nil {
		s.metricsManager.CounterWorkoutsImported.Add(float64(len(imported)))
	}
	log.Debugf("user %d imported %d workouts", userID, len(imported))

	return imported, nil
}

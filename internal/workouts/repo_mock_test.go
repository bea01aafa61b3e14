package workouts

import (
	"context"
	"sort"
	"sync"
)

var _ workoutsRepo = (*repoMock)(nil)

type repoMock struct {
	Workouts  map[int]*Workout
	Exercises map[int]*Exercise
	lastID    int
	mutex     sync.Mutex
}

func newRepoMock() *repoMock {
	return &repoMock{
		Workouts:  make(map[int]*Workout),
		Exercises: make(map[int]*Exercise),
	}
}

func (r *repoMock) nextID() int {
	r.lastID++
	return r.lastID
}

func (r *repoMock) AddWorkout(_ context.Context, workout Workout) (*Workout, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.addWorkout(workout), nil
}

func (r *repoMock) addWorkout(workout Workout) *Workout {
	workout.ID = r.nextID()
	workout.UpdatedAt = workout.CreatedAt
	exercises := workout.Exercises
	workout.Exercises = nil
	r.Workouts[workout.ID] = &workout

	out := workout
	for _, e := range exercises {
		e.WorkoutID = workout.ID
		e.ID = r.nextID()
		e.UpdatedAt = e.CreatedAt
		r.Exercises[e.ID] = &e
		out.Exercises = append(out.Exercises, e)
	}
	return &out
}

func (r *repoMock) UpdateWorkout(_ context.Context, workout *Workout) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	stored, ok := r.Workouts[workout.ID]
	if !ok || stored.UserID != workout.UserID {
		return ErrWorkoutNotFound
	}
	stored.Name = workout.Name
	stored.Description = workout.Description
	stored.OrderID = workout.OrderID
	stored.UpdatedAt = workout.UpdatedAt
	return nil
}

func (r *repoMock) DeleteWorkout(_ context.Context, userID, id int) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	stored, ok := r.Workouts[id]
	if !ok || stored.UserID != userID {
		return ErrWorkoutNotFound
	}
	delete(r.Workouts, id)
	for exID, e := range r.Exercises {
		if e.WorkoutID == id {
			delete(r.Exercises, exID)
		}
	}
	return nil
}

func (r *repoMock) GetWorkout(_ context.Context, userID, id int) (*Workout, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	stored, ok := r.Workouts[id]
	if !ok || stored.UserID != userID {
		return nil, ErrWorkoutNotFound
	}

	w := *stored
	w.Exercises = make([]Exercise, 0)
	for _, e := range r.Exercises {
		if e.WorkoutID == id {
			w.Exercises = append(w.Exercises, *e)
		}
	}
	sort.Slice(w.Exercises, func(i, j int) bool {
		if w.Exercises[i].UpdatedAt.Equal(w.Exercises[j].UpdatedAt) {
			return w.Exercises[i].ID > w.Exercises[j].ID
		}
		return w.Exercises[i].UpdatedAt.After(w.Exercises[j].UpdatedAt)
	})
	return &w, nil
}

func (r *repoMock) userWorkouts(userID int) []Workout {
	workouts := make([]Workout, 0)
	for _, w := range r.Workouts {
		if w.UserID == userID {
			workouts = append(workouts, *w)
		}
	}
	return workouts
}

func (r *repoMock) ListWorkouts(_ context.Context, userID, limit, offset int) ([]Workout, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	workouts := r.userWorkouts(userID)
	sort.Slice(workouts, func(i, j int) bool {
		if workouts[i].OrderID == workouts[j].OrderID {
			return workouts[i].ID < workouts[j].ID
		}
		return workouts[i].OrderID < workouts[j].OrderID
	})

	if offset >= len(workouts) {
		return []Workout{}, nil
	}
	end := offset + limit
	if end > len(workouts) {
		end = len(workouts)
	}
	return workouts[offset:end], nil
}

func (r *repoMock) CountWorkouts(_ context.Context, userID int) (int, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.userWorkouts(userID)), nil
}

func (r *repoMock) RecentWorkouts(_ context.Context, userID, limit int) ([]Workout, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	workouts := r.userWorkouts(userID)
	sort.Slice(workouts, func(i, j int) bool {
		return workouts[i].ID > workouts[j].ID
	})
	if len(workouts) > limit {
		workouts = workouts[:limit]
	}
	return workouts, nil
}

func (r *repoMock) AddExercise(_ context.Context, userID int, exercise Exercise) (*Exercise, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	w, ok := r.Workouts[exercise.WorkoutID]
	if !ok || w.UserID != userID {
		return nil, ErrWorkoutNotFound
	}
	exercise.ID = r.nextID()
	exercise.UpdatedAt = exercise.CreatedAt
	r.Exercises[exercise.ID] = &exercise
	out := exercise
	return &out, nil
}

func (r *repoMock) ownedExercise(userID, workoutID, id int) (*Exercise, bool) {
	e, ok := r.Exercises[id]
	if !ok || e.WorkoutID != workoutID {
		return nil, false
	}
	w, ok := r.Workouts[workoutID]
	if !ok || w.UserID != userID {
		return nil, false
	}
	return e, true
}

func (r *repoMock) UpdateExercise(_ context.Context, userID int, exercise *Exercise) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	stored, ok := r.ownedExercise(userID, exercise.WorkoutID, exercise.ID)
	if !ok {
		return ErrExerciseNotFound
	}
	stored.Name = exercise.Name
	stored.Sets = exercise.Sets
	stored.Repetitions = exercise.Repetitions
	stored.RPE = exercise.RPE
	stored.UpdatedAt = exercise.UpdatedAt
	exercise.CreatedAt = stored.CreatedAt
	return nil
}

func (r *repoMock) DeleteExercise(_ context.Context, userID, workoutID, id int) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.ownedExercise(userID, workoutID, id); !ok {
		return ErrExerciseNotFound
	}
	delete(r.Exercises, id)
	return nil
}

func (r *repoMock) ImportWorkouts(_ context.Context, workouts []Workout) ([]Workout, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	imported := make([]Workout, 0, len(workouts))
	for _, w := range workouts {
		imported = append(imported, *r.addWorkout(w))
	}
	return imported, nil
}

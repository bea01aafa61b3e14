package training

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/2beens/workouttracker/internal/workouts"
)

var _ trainingRepo = (*repoMock)(nil)

type repoMock struct {
	Workouts  map[int]*workouts.Workout
	Exercises map[int]*workouts.Exercise
	Sessions  map[int]*WorkoutSession
	Histories map[int]*WorkoutHistory

	lastID int
	mutex  sync.Mutex
}

func newRepoMock() *repoMock {
	return &repoMock{
		Workouts:  make(map[int]*workouts.Workout),
		Exercises: make(map[int]*workouts.Exercise),
		Sessions:  make(map[int]*WorkoutSession),
		Histories: make(map[int]*WorkoutHistory),
	}
}

func (r *repoMock) nextID() int {
	r.lastID++
	return r.lastID
}

func (r *repoMock) addWorkout(userID, orderID int, name string) *workouts.Workout {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	w := &workouts.Workout{
		ID:          r.nextID(),
		UserID:      userID,
		Name:        name,
		Description: name,
		OrderID:     orderID,
	}
	r.Workouts[w.ID] = w
	return w
}

func (r *repoMock) addExercise(workoutID int, name string, sets, reps, rpe int) *workouts.Exercise {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	e := &workouts.Exercise{
		ID:          r.nextID(),
		WorkoutID:   workoutID,
		Name:        name,
		Sets:        sets,
		Repetitions: reps,
		RPE:         rpe,
	}
	r.Exercises[e.ID] = e
	return e
}

func (r *repoMock) deleteWorkout(id int) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	delete(r.Workouts, id)
	for exID, e := range r.Exercises {
		if e.WorkoutID == id {
			delete(r.Exercises, exID)
		}
	}
	for sID, s := range r.Sessions {
		if s.WorkoutID == id {
			delete(r.Sessions, sID)
		}
	}
	for _, h := range r.Histories {
		if h.WorkoutID != nil && *h.WorkoutID == id {
			h.WorkoutID = nil
		}
	}
}

func (r *repoMock) OrderedWorkouts(_ context.Context, userID int) ([]workouts.Workout, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	ordered := make([]workouts.Workout, 0)
	for _, w := range r.Workouts {
		if w.UserID == userID {
			ordered = append(ordered, *w)
		}
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].OrderID == ordered[j].OrderID {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].OrderID < ordered[j].OrderID
	})
	return ordered, nil
}

func (r *repoMock) ResetCompleted(_ context.Context, userID int) (int64, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var reset int64
	for _, w := range r.Workouts {
		if w.UserID == userID && w.Completed {
			w.Completed = false
			reset++
		}
	}
	return reset, nil
}

func (r *repoMock) LastSession(_ context.Context, userID int) (*WorkoutSession, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var last *WorkoutSession
	for _, s := range r.Sessions {
		if s.UserID != userID {
			continue
		}
		if last == nil || s.CreatedAt.After(last.CreatedAt) || (s.CreatedAt.Equal(last.CreatedAt) && s.ID > last.ID) {
			last = s
		}
	}
	if last == nil {
		return nil, ErrSessionNotFound
	}
	session := *last
	session.Exercises = nil
	return &session, nil
}

func (r *repoMock) CreateSession(_ context.Context, userID, workoutID int, createdAt time.Time) (*WorkoutSession, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	w, ok := r.Workouts[workoutID]
	if !ok || w.UserID != userID {
		return nil, workouts.ErrWorkoutNotFound
	}

	session := &WorkoutSession{
		ID:          r.nextID(),
		UserID:      userID,
		WorkoutID:   workoutID,
		WorkoutName: w.Name,
		CreatedAt:   createdAt,
		Exercises:   make([]ExerciseSession, 0),
	}

	exerciseIDs := make([]int, 0)
	for id, e := range r.Exercises {
		if e.WorkoutID == workoutID {
			exerciseIDs = append(exerciseIDs, id)
		}
	}
	sort.Ints(exerciseIDs)
	for _, id := range exerciseIDs {
		e := r.Exercises[id]
		session.Exercises = append(session.Exercises, ExerciseSession{
			ID:               r.nextID(),
			WorkoutSessionID: session.ID,
			ExerciseID:       e.ID,
			ExerciseName:     e.Name,
			Sets:             e.Sets,
			RPE:              e.RPE,
		})
	}

	r.Sessions[session.ID] = session
	return copySession(session), nil
}

func copySession(s *WorkoutSession) *WorkoutSession {
	c := *s
	c.Exercises = make([]ExerciseSession, len(s.Exercises))
	for i, es := range s.Exercises {
		c.Exercises[i] = es
		if es.Series != nil {
			c.Exercises[i].Series = append([]Series(nil), es.Series...)
		}
	}
	return &c
}

func (r *repoMock) GetSession(_ context.Context, userID, sessionID int) (*WorkoutSession, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	s, ok := r.Sessions[sessionID]
	if !ok || s.UserID != userID {
		return nil, ErrSessionNotFound
	}
	return copySession(s), nil
}

// openExerciseSession mirrors the owner / in-progress guard of the update statements.
func (r *repoMock) openExerciseSession(userID, sessionID, exerciseID int) (*ExerciseSession, error) {
	s, ok := r.Sessions[sessionID]
	if !ok || s.UserID != userID {
		return nil, ErrSessionNotFound
	}
	if s.Completed {
		return nil, ErrSessionCompleted
	}
	for i := range s.Exercises {
		if s.Exercises[i].ExerciseID == exerciseID {
			return &s.Exercises[i], nil
		}
	}
	return nil, ErrExerciseSessionNotFound
}

func (r *repoMock) applyPerformance(es *ExerciseSession, p Performance) {
	es.WeightUsed = p.Weight
	es.ActualRepetitions = p.Repetitions
	if p.RPE != 0 {
		es.RPE = p.RPE
	} else if e, ok := r.Exercises[es.ExerciseID]; ok {
		es.RPE = e.RPE
	}
}

func (r *repoMock) UpdatePerformance(_ context.Context, userID, sessionID, exerciseID int, p Performance) (*ExerciseSession, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	es, err := r.openExerciseSession(userID, sessionID, exerciseID)
	if err != nil {
		return nil, err
	}
	r.applyPerformance(es, p)
	out := *es
	out.Series = nil
	return &out, nil
}

func (r *repoMock) ReplaceSeries(_ context.Context, userID, sessionID, exerciseID int, series []Series) (*ExerciseSession, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	es, err := r.openExerciseSession(userID, sessionID, exerciseID)
	if err != nil {
		return nil, err
	}

	es.Series = make([]Series, 0, len(series))
	for _, s := range series {
		s.ID = r.nextID()
		s.ExerciseSessionID = es.ID
		es.Series = append(es.Series, s)
	}
	last := series[len(series)-1]
	es.WeightUsed = last.WeightUsed
	es.ActualRepetitions = last.Repetitions

	out := *es
	out.Series = append([]Series(nil), es.Series...)
	return &out, nil
}

func (r *repoMock) CompleteSession(_ context.Context, userID, sessionID int, overrides map[int]Performance, completedAt time.Time) (*WorkoutHistory, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	s, ok := r.Sessions[sessionID]
	if !ok || s.UserID != userID {
		return nil, ErrSessionNotFound
	}
	if s.Completed {
		return nil, ErrSessionCompleted
	}
	s.Completed = true

	w := r.Workouts[s.WorkoutID]
	w.Completed = true

	sessionRef, workoutRef := s.ID, w.ID
	history := &WorkoutHistory{
		ID:          r.nextID(),
		UserID:      userID,
		SessionID:   &sessionRef,
		WorkoutID:   &workoutRef,
		WorkoutName: w.Name,
		CompletedAt: completedAt,
		Exercises:   make([]ExerciseHistory, 0, len(s.Exercises)),
	}
	for i := range s.Exercises {
		es := &s.Exercises[i]
		if p, ok := overrides[es.ExerciseID]; ok {
			r.applyPerformance(es, p)
		}
		exerciseRef := es.ExerciseID
		history.Exercises = append(history.Exercises, ExerciseHistory{
			ID:               r.nextID(),
			WorkoutHistoryID: history.ID,
			ExerciseID:       &exerciseRef,
			ExerciseName:     es.ExerciseName,
			WeightUsed:       es.WeightUsed,
			Repetitions:      es.ActualRepetitions,
			Sets:             es.Sets,
			RPE:              es.RPE,
		})
	}

	r.Histories[history.ID] = history
	out := *history
	out.Exercises = append([]ExerciseHistory(nil), history.Exercises...)
	return &out, nil
}

func (r *repoMock) GetHistory(_ context.Context, userID, historyID int) (*WorkoutHistory, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	h, ok := r.Histories[historyID]
	if !ok || h.UserID != userID {
		return nil, ErrHistoryNotFound
	}
	out := *h
	out.Exercises = append([]ExerciseHistory(nil), h.Exercises...)
	return &out, nil
}

func (r *repoMock) userHistories(userID int) []WorkoutHistory {
	histories := make([]WorkoutHistory, 0)
	for _, h := range r.Histories {
		if h.UserID == userID {
			out := *h
			out.Exercises = nil
			histories = append(histories, out)
		}
	}
	return histories
}

func (r *repoMock) ListHistory(_ context.Context, userID, limit, offset int) ([]WorkoutHistory, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	histories := r.userHistories(userID)
	sort.Slice(histories, func(i, j int) bool {
		if histories[i].CompletedAt.Equal(histories[j].CompletedAt) {
			return histories[i].ID > histories[j].ID
		}
		return histories[i].CompletedAt.After(histories[j].CompletedAt)
	})
	if offset >= len(histories) {
		return []WorkoutHistory{}, nil
	}
	end := offset + limit
	if end > len(histories) {
		end = len(histories)
	}
	return histories[offset:end], nil
}

func (r *repoMock) CountHistory(_ context.Context, userID int) (int, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.userHistories(userID)), nil
}

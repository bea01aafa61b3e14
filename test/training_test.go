//go:build integration

package test

import (
	"fmt"
	"net/http"

	"github.com/2beens/workouttracker/internal/training"
	"github.com/2beens/workouttracker/internal/workouts"
)

func (s *IntegrationTestSuite) createWorkout(token, name string, orderID int, exercises ...string) workouts.Workout {
	var workout workouts.Workout
	s.doJSON(http.MethodPost, "/workouts", token, workouts.WorkoutInput{
		Name:        name,
		Description: name + " day",
		OrderID:     orderID,
	}, http.StatusCreated, &workout)

	for _, exName := range exercises {
		var exercise workouts.Exercise
		s.doJSON(http.MethodPost, fmt.Sprintf("/workouts/%d/exercises", workout.ID), token, workouts.ExerciseInput{
			Name:        exName,
			Sets:        "3",
			Repetitions: "10",
			RPE:         "8",
		}, http.StatusCreated, &exercise)
		workout.Exercises = append(workout.Exercises, exercise)
	}

	return workout
}

func (s *IntegrationTestSuite) TestTraining_FullSession() {
	user := s.registerUser()

	push := s.createWorkout(user.Token, "Push", 1, "Bench Press", "Overhead Press")
	pull := s.createWorkout(user.Token, "Pull", 2, "Deadlift")

	var next workouts.Workout
	s.doJSON(http.MethodGet, "/training/next", user.Token, nil, http.StatusOK, &next)
	s.Equal(push.ID, next.ID)

	var current training.CurrentSessionResponse
	s.doJSON(http.MethodGet, "/training/current", user.Token, nil, http.StatusOK, &current)
	s.Require().True(current.Created)
	s.Require().NotNil(current.Session)
	session := current.Session
	s.Equal(push.ID, session.WorkoutID)
	s.Require().Len(session.Exercises, 2)
	for _, es := range session.Exercises {
		s.Zero(es.WeightUsed)
		s.Zero(es.ActualRepetitions)
	}

	// resumed, not recreated
	s.doJSON(http.MethodGet, "/training/current", user.Token, nil, http.StatusOK, &current)
	s.False(current.Created)
	s.Equal(session.ID, current.Session.ID)

	benchID := push.Exercises[0].ID
	var es training.ExerciseSession
	s.doJSON(http.MethodPut, fmt.Sprintf("/training/sessions/%d/exercises/%d", session.ID, benchID), user.Token,
		training.PerformanceInput{Weight: "82,5", Repetitions: "8", RPE: "9"},
		http.StatusOK, &es,
	)
	s.Equal(82.5, es.WeightUsed)
	s.Equal(8, es.ActualRepetitions)
	s.Equal(9, es.RPE)

	status, body := s.doRequest(http.MethodPut, fmt.Sprintf("/training/sessions/%d/exercises/%d", session.ID, benchID), user.Token,
		training.PerformanceInput{Weight: "-1", Repetitions: "8", RPE: "9"},
	)
	s.Equal(http.StatusBadRequest, status, string(body))

	var dashboard training.DashboardResponse
	s.doJSON(http.MethodGet, "/dashboard", user.Token, nil, http.StatusOK, &dashboard)
	s.Equal(session.ID, dashboard.CurrentSessionID)

	pressID := push.Exercises[1].ID
	var history training.WorkoutHistory
	s.doJSON(http.MethodPost, fmt.Sprintf("/training/sessions/%d/complete", session.ID), user.Token,
		training.CompleteRequest{Exercises: map[int]training.PerformanceInput{
			pressID: {Weight: "40", Repetitions: "6", RPE: "7"},
		}},
		http.StatusCreated, &history,
	)
	s.Equal("Push", history.WorkoutName)
	s.Require().Len(history.Exercises, 2)

	var rows []struct {
		name   string
		weight float64
		reps   int
		rpe    int
	}
	dbRows, err := s.DB.Query(`
		SELECT exercise_name, weight_used, repetitions, rpe
		FROM exercise_histories
		WHERE workout_history_id = $1
		ORDER BY exercise_name`, history.ID,
	)
	s.Require().NoError(err)
	defer dbRows.Close()
	for dbRows.Next() {
		var row struct {
			name   string
			weight float64
			reps   int
			rpe    int
		}
		s.Require().NoError(dbRows.Scan(&row.name, &row.weight, &row.reps, &row.rpe))
		rows = append(rows, row)
	}
	s.Require().NoError(dbRows.Err())
	s.Require().Len(rows, 2)
	s.Equal("Bench Press", rows[0].name)
	s.Equal(82.5, rows[0].weight)
	s.Equal(8, rows[0].reps)
	s.Equal(9, rows[0].rpe)
	s.Equal("Overhead Press", rows[1].name)
	s.Equal(40.0, rows[1].weight)
	s.Equal(6, rows[1].reps)
	s.Equal(7, rows[1].rpe)

	var completed bool
	s.Require().NoError(s.DB.QueryRow(
		`SELECT completed FROM workout_sessions WHERE id = $1`, session.ID,
	).Scan(&completed))
	s.True(completed)

	status, body = s.doRequest(http.MethodPost, fmt.Sprintf("/training/sessions/%d/complete", session.ID), user.Token, nil)
	s.Equal(http.StatusConflict, status, string(body))

	var historiesCount int
	s.Require().NoError(s.DB.QueryRow(
		`SELECT COUNT(*) FROM workout_histories WHERE user_id = $1`, user.ID,
	).Scan(&historiesCount))
	s.Equal(1, historiesCount)

	s.doJSON(http.MethodGet, "/training/next", user.Token, nil, http.StatusOK, &next)
	s.Equal(pull.ID, next.ID)

	var historyPage training.HistoryPage
	s.doJSON(http.MethodGet, "/history/page/1/size/10", user.Token, nil, http.StatusOK, &historyPage)
	s.Equal(1, historyPage.Total)
	s.Require().Len(historyPage.Histories, 1)
	s.Equal(history.ID, historyPage.Histories[0].ID)
}

func (s *IntegrationTestSuite) TestTraining_HistorySurvivesWorkoutDelete() {
	user := s.registerUser()
	legs := s.createWorkout(user.Token, "Legs", 1, "Squat")

	var session training.WorkoutSession
	s.doJSON(http.MethodPost, fmt.Sprintf("/training/workouts/%d/start", legs.ID), user.Token, nil, http.StatusCreated, &session)

	var history training.WorkoutHistory
	s.doJSON(http.MethodPost, fmt.Sprintf("/training/sessions/%d/complete", session.ID), user.Token,
		training.CompleteRequest{Exercises: map[int]training.PerformanceInput{
			legs.Exercises[0].ID: {Weight: "120", Repetitions: "5", RPE: "9"},
		}},
		http.StatusCreated, &history,
	)

	s.doJSON(http.MethodDelete, fmt.Sprintf("/workouts/%d", legs.ID), user.Token, nil, http.StatusOK, nil)

	var stored training.WorkoutHistory
	s.doJSON(http.MethodGet, fmt.Sprintf("/history/%d", history.ID), user.Token, nil, http.StatusOK, &stored)
	s.Equal("Legs", stored.WorkoutName)
	s.Nil(stored.WorkoutID)
	s.Require().Len(stored.Exercises, 1)
	s.Equal("Squat", stored.Exercises[0].ExerciseName)
	s.Equal(120.0, stored.Exercises[0].WeightUsed)
	s.Nil(stored.Exercises[0].ExerciseID)

	status, _ := s.doRequest(http.MethodGet, "/training/next", user.Token, nil)
	s.Equal(http.StatusNotFound, status)
}

func (s *IntegrationTestSuite) TestTraining_OtherUsersSessionsHidden() {
	owner := s.registerUser()
	intruder := s.registerUser()

	upper := s.createWorkout(owner.Token, "Upper", 1, "Row")

	var session training.WorkoutSession
	s.doJSON(http.MethodPost, fmt.Sprintf("/training/workouts/%d/start", upper.ID), owner.Token, nil, http.StatusCreated, &session)

	status, _ := s.doRequest(http.MethodGet, fmt.Sprintf("/training/sessions/%d", session.ID), intruder.Token, nil)
	s.Equal(http.StatusNotFound, status)

	status, _ = s.doRequest(http.MethodPost, fmt.Sprintf("/training/sessions/%d/complete", session.ID), intruder.Token, nil)
	s.Equal(http.StatusNotFound, status)

	status, _ = s.doRequest(http.MethodPost, fmt.Sprintf("/training/workouts/%d/start", upper.ID), intruder.Token, nil)
	s.Equal(http.StatusNotFound, status)
}

func (s *IntegrationTestSuite) startAndComplete(token string, workoutID int) training.WorkoutHistory {
	var session training.WorkoutSession
	s.doJSON(http.MethodPost, fmt.Sprintf("/training/workouts/%d/start", workoutID), token, nil, http.StatusCreated, &session)

	var history training.WorkoutHistory
	s.doJSON(http.MethodPost, fmt.Sprintf("/training/sessions/%d/complete", session.ID), token, nil, http.StatusCreated, &history)
	return history
}

func (s *IntegrationTestSuite) countRows(query string, args ...any) int {
	var count int
	s.Require().NoError(s.DB.QueryRow(query, args...).Scan(&count))
	return count
}

func (s *IntegrationTestSuite) TestTraining_RotationResetsWhenAllCompleted() {
	user := s.registerUser()
	upper := s.createWorkout(user.Token, "Upper", 1, "Supino")
	lower := s.createWorkout(user.Token, "Lower", 2, "Agachamento")

	s.startAndComplete(user.Token, upper.ID)
	s.startAndComplete(user.Token, lower.ID)
	s.Equal(2, s.countRows(`SELECT COUNT(*) FROM workouts WHERE user_id = $1 AND completed`, user.ID))

	var next workouts.Workout
	s.doJSON(http.MethodGet, "/training/next", user.Token, nil, http.StatusOK, &next)
	s.Equal(upper.ID, next.ID)
	s.False(next.Completed)

	s.Equal(0, s.countRows(`SELECT COUNT(*) FROM workouts WHERE user_id = $1 AND completed`, user.ID))
	s.Equal(2, s.countRows(`SELECT COUNT(*) FROM workouts WHERE user_id = $1 AND NOT completed`, user.ID))
}

func (s *IntegrationTestSuite) TestTraining_RecordSeries() {
	user := s.registerUser()
	pull := s.createWorkout(user.Token, "Pull", 1, "Barra fixa")
	exerciseID := pull.Exercises[0].ID

	var session training.WorkoutSession
	s.doJSON(http.MethodPost, fmt.Sprintf("/training/workouts/%d/start", pull.ID), user.Token, nil, http.StatusCreated, &session)

	seriesPath := fmt.Sprintf("/training/sessions/%d/exercises/%d/series", session.ID, exerciseID)
	var es training.ExerciseSession
	s.doJSON(http.MethodPut, seriesPath, user.Token, training.SeriesRequest{Series: []training.SeriesInput{
		{Weight: "10", Repetitions: "12"},
		{Weight: "12,5", Repetitions: "10"},
		{Weight: "15", Repetitions: "8"},
	}}, http.StatusOK, &es)
	s.Equal(15.0, es.WeightUsed)
	s.Equal(8, es.ActualRepetitions)
	s.Len(es.Series, 3)

	// replacing keeps only the new sets
	s.doJSON(http.MethodPut, seriesPath, user.Token, training.SeriesRequest{Series: []training.SeriesInput{
		{Weight: "20", Repetitions: "6"},
		{Weight: "22,5", Repetitions: "5"},
	}}, http.StatusOK, &es)

	rows, err := s.DB.Query(
		`SELECT set_number, weight_used, repetitions FROM series WHERE exercise_session_id = $1 ORDER BY set_number`,
		es.ID,
	)
	s.Require().NoError(err)
	defer rows.Close()

	var stored []training.Series
	for rows.Next() {
		var sr training.Series
		s.Require().NoError(rows.Scan(&sr.SetNumber, &sr.WeightUsed, &sr.Repetitions))
		stored = append(stored, sr)
	}
	s.Require().NoError(rows.Err())
	s.Equal([]training.Series{
		{SetNumber: 1, WeightUsed: 20, Repetitions: 6},
		{SetNumber: 2, WeightUsed: 22.5, Repetitions: 5},
	}, stored)

	var weight float64
	var reps int
	s.Require().NoError(s.DB.QueryRow(
		`SELECT weight_used, actual_repetitions FROM exercise_sessions WHERE id = $1`, es.ID,
	).Scan(&weight, &reps))
	s.Equal(22.5, weight)
	s.Equal(5, reps)

	status, body := s.doRequest(http.MethodPut, seriesPath, user.Token, training.SeriesRequest{Series: []training.SeriesInput{
		{Weight: "20", Repetitions: "9999999999"},
	}})
	s.Equal(http.StatusBadRequest, status, string(body))
}

func (s *IntegrationTestSuite) TestTraining_StartEmptyWorkout() {
	user := s.registerUser()
	rest := s.createWorkout(user.Token, "Descanso", 1)

	var session training.WorkoutSession
	s.doJSON(http.MethodPost, fmt.Sprintf("/training/workouts/%d/start", rest.ID), user.Token, nil, http.StatusCreated, &session)
	s.Empty(session.Exercises)
	s.Equal(0, s.countRows(`SELECT COUNT(*) FROM exercise_sessions WHERE workout_session_id = $1`, session.ID))

	var history training.WorkoutHistory
	s.doJSON(http.MethodPost, fmt.Sprintf("/training/sessions/%d/complete", session.ID), user.Token, nil, http.StatusCreated, &history)
	s.Empty(history.Exercises)
	s.Equal(0, s.countRows(`SELECT COUNT(*) FROM exercise_histories WHERE workout_history_id = $1`, history.ID))
}

func (s *IntegrationTestSuite) TestTraining_EmptyRPEKeepsTemplate() {
	user := s.registerUser()

	var workout workouts.Workout
	s.doJSON(http.MethodPost, "/workouts", user.Token, workouts.WorkoutInput{
		Name:        "Core",
		Description: "Core day",
		OrderID:     1,
	}, http.StatusCreated, &workout)

	var plank workouts.Exercise
	s.doJSON(http.MethodPost, fmt.Sprintf("/workouts/%d/exercises", workout.ID), user.Token, workouts.ExerciseInput{
		Name:        "Prancha",
		Sets:        "3",
		Repetitions: "1",
		RPE:         "6",
	}, http.StatusCreated, &plank)

	var session training.WorkoutSession
	s.doJSON(http.MethodPost, fmt.Sprintf("/training/workouts/%d/start", workout.ID), user.Token, nil, http.StatusCreated, &session)

	performancePath := fmt.Sprintf("/training/sessions/%d/exercises/%d", session.ID, plank.ID)
	var es training.ExerciseSession
	s.doJSON(http.MethodPut, performancePath, user.Token,
		training.PerformanceInput{Weight: "0", Repetitions: "1", RPE: "9"},
		http.StatusOK, &es,
	)
	s.Equal(9, es.RPE)

	s.doJSON(http.MethodPut, performancePath, user.Token,
		training.PerformanceInput{Weight: "5", Repetitions: "2", RPE: ""},
		http.StatusOK, &es,
	)
	s.Equal(6, es.RPE)

	var rpe, reps int
	s.Require().NoError(s.DB.QueryRow(
		`SELECT rpe, actual_repetitions FROM exercise_sessions WHERE id = $1`, es.ID,
	).Scan(&rpe, &reps))
	s.Equal(6, rpe)
	s.Equal(2, reps)
	s.Equal(1, s.countRows(`SELECT COUNT(*) FROM exercise_sessions WHERE workout_session_id = $1`, session.ID))
}

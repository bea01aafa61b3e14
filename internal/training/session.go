package training

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/2beens/workouttracker/internal/workouts"
	"github.com/2beens/workouttracker/pkg"
)

var (
	ErrSessionNotFound         = errors.New("workout session not found")
	ErrExerciseSessionNotFound = errors.New("exercise session not found")
	ErrHistoryNotFound         = errors.New("workout history not found")
	ErrSessionCompleted        = errors.New("workout session already completed")
	ErrNoWorkouts              = errors.New("no workouts defined")
)

// weight_used is NUMERIC(6, 1)
const maxWeight = 99999.9

type WorkoutSession struct {
	ID          int               `json:"id"`
	UserID      int               `json:"userId"`
	WorkoutID   int               `json:"workoutId"`
	WorkoutName string            `json:"workoutName"`
	Completed   bool              `json:"completed"`
	CreatedAt   time.Time         `json:"createdAt"`
	Exercises   []ExerciseSession `json:"exercises"`
}

type ExerciseSession struct {
	ID                int      `json:"id"`
	WorkoutSessionID  int      `json:"workoutSessionId"`
	ExerciseID        int      `json:"exerciseId"`
	ExerciseName      string   `json:"exerciseName"`
	WeightUsed        float64  `json:"weightUsed"`
	ActualRepetitions int      `json:"actualRepetitions"`
	Sets              int      `json:"sets"`
	RPE               int      `json:"rpe"`
	Series            []Series `json:"series,omitempty"`
}

type Series struct {
	ID                int     `json:"id"`
	ExerciseSessionID int     `json:"exerciseSessionId"`
	SetNumber         int     `json:"setNumber"`
	WeightUsed        float64 `json:"weightUsed"`
	Repetitions       int     `json:"repetitions"`
}

// PerformanceInput holds what was actually performed for one exercise, as submitted.
type PerformanceInput struct {
	Weight      string `json:"weight"`
	Repetitions string `json:"repetitions"`
	RPE         string `json:"rpe"`
}

// Performance is a validated PerformanceInput. RPE 0 keeps the exercise's own RPE.
type Performance struct {
	Weight      float64
	Repetitions int
	RPE         int
}

func (in PerformanceInput) Parse() (Performance, pkg.Messages) {
	var msgs pkg.Messages

	weight, ok := parseWeight(in.Weight, &msgs)
	reps, repsOK := parseRepetitions(in.Repetitions, &msgs)

	rpe := 0
	if raw := strings.TrimSpace(in.RPE); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < workouts.MinRPE || v > workouts.MaxRPE {
			msgs.Add("RPE must be a whole number between 1 and 10.")
		} else {
			rpe = v
		}
	}

	if !ok || !repsOK {
		return Performance{}, msgs
	}
	return Performance{Weight: weight, Repetitions: reps, RPE: rpe}, msgs
}

type SeriesInput struct {
	Weight      string `json:"weight"`
	Repetitions string `json:"repetitions"`
}

// ParseSeries validates all sets; set numbers follow the order of the input, starting at 1.
func ParseSeries(in []SeriesInput) ([]Series, pkg.Messages) {
	var msgs pkg.Messages
	if len(in) == 0 {
		msgs.Add("At least one set is required.")
		return nil, msgs
	}

	series := make([]Series, 0, len(in))
	for i, s := range in {
		var setMsgs pkg.Messages
		weight, _ := parseWeight(s.Weight, &setMsgs)
		reps, _ := parseRepetitions(s.Repetitions, &setMsgs)
		for _, m := range setMsgs {
			msgs.Add(fmt.Sprintf("Set %d: %s", i+1, m))
		}
		series = append(series, Series{
			SetNumber:   i + 1,
			WeightUsed:  weight,
			Repetitions: reps,
		})
	}
	return series, msgs
}

// parseWeight accepts both "82.5" and "82,5"; empty means 0. The value is rounded to one decimal.
func parseWeight(raw string, msgs *pkg.Messages) (float64, bool) {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	if raw == "" {
		return 0, true
	}
	w, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
		msgs.Add("Weight must be a non-negative number.")
		return 0, false
	}
	w = math.Round(w*10) / 10
	if w > maxWeight {
		msgs.Add(fmt.Sprintf("Weight must not exceed %.1f.", maxWeight))
		return 0, false
	}
	return w, true
}

func parseRepetitions(raw string, msgs *pkg.Messages) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, true
	}
	reps, err := strconv.Atoi(raw)
	if err != nil || reps < 0 {
		msgs.Add("Repetitions must be a non-negative whole number.")
		return 0, false
	}
	if reps > workouts.MaxRepetitions {
		msgs.Add(fmt.Sprintf("Repetitions must not exceed %d.", workouts.MaxRepetitions))
		return 0, false
	}
	return reps, true
}

package workouts

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/2beens/workouttracker/pkg"
)

const (
	DefaultSets        = 1
	DefaultRepetitions = 1
	DefaultRPE         = 8

	MinRPE = 1
	MaxRPE = 10

	MaxSets        = 100
	MaxRepetitions = 9999
	MaxOrderID     = 10000
)

type Workout struct {
	ID          int        `json:"id"`
	UserID      int        `json:"userId"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	OrderID     int        `json:"orderId"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	Exercises   []Exercise `json:"exercises,omitempty"`
}

type Exercise struct {
	ID          int       `json:"id"`
	WorkoutID   int       `json:"workoutId"`
	Name        string    `json:"name"`
	Sets        int       `json:"sets"`
	Repetitions int       `json:"repetitions"`
	RPE         int       `json:"rpe"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// WorkoutInput is used both to create and to update a workout.
type WorkoutInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	OrderID     int    `json:"orderId"`
}

func (in WorkoutInput) Validate() pkg.Messages {
	var msgs pkg.Messages
	if !lengthBetween(in.Name, 2, 50) {
		msgs.Add("Name is required and must be between 2 and 50 characters long.")
	}
	if !lengthBetween(in.Description, 2, 150) {
		msgs.Add("Description is required and must be between 2 and 150 characters long.")
	}
	if in.OrderID <= 0 {
		msgs.Add("Workout order is required and must be greater than 0.")
	} else if in.OrderID > MaxOrderID {
		msgs.Add(fmt.Sprintf("Workout order must not exceed %d.", MaxOrderID))
	}
	return msgs
}

// ExerciseInput carries the raw values as submitted; empty numeric fields fall back to the defaults.
type ExerciseInput struct {
	Name        string `json:"name"`
	Sets        string `json:"sets"`
	Repetitions string `json:"repetitions"`
	RPE         string `json:"rpe"`
}

// Parse validates the input and returns the exercise values it describes.
func (in ExerciseInput) Parse() (Exercise, pkg.Messages) {
	var msgs pkg.Messages

	name := strings.TrimSpace(in.Name)
	if !lengthBetween(name, 2, 50) {
		msgs.Add("Exercise name is required and must be between 2 and 50 characters long.")
	}

	sets, setsErr := intOrDefault(in.Sets, DefaultSets)
	reps, repsErr := intOrDefault(in.Repetitions, DefaultRepetitions)
	rpe, rpeErr := intOrDefault(in.RPE, DefaultRPE)
	switch {
	case setsErr != nil || repsErr != nil || rpeErr != nil:
		msgs.Add("Sets, repetitions and RPE must be valid numbers.")
	case sets <= 0 || reps <= 0 || rpe < MinRPE || rpe > MaxRPE:
		msgs.Add("Sets and repetitions must be positive and RPE between 1 and 10.")
	case sets > MaxSets || reps > MaxRepetitions:
		msgs.Add(fmt.Sprintf("Sets must not exceed %d and repetitions must not exceed %d.", MaxSets, MaxRepetitions))
	}

	return Exercise{
		Name:        name,
		Sets:        sets,
		Repetitions: reps,
		RPE:         rpe,
	}, msgs
}

func intOrDefault(raw string, def int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func lengthBetween(s string, minLen, maxLen int) bool {
	l := utf8.RuneCountInString(strings.TrimSpace(s))
	return l >= minLen && l <= maxLen
}

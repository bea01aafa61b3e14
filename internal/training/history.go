package training

import "time"

// WorkoutHistory is the immutable record of a completed session. The workout and session
// references become nil when those rows are deleted; the name copy stays.
type WorkoutHistory struct {
	ID          int               `json:"id"`
	UserID      int               `json:"userId"`
	SessionID   *int              `json:"sessionId"`
	WorkoutID   *int              `json:"workoutId"`
	WorkoutName string            `json:"workoutName"`
	CompletedAt time.Time         `json:"completedAt"`
	Exercises   []ExerciseHistory `json:"exercises,omitempty"`
}

type ExerciseHistory struct {
	ID               int     `json:"id"`
	WorkoutHistoryID int     `json:"workoutHistoryId"`
	ExerciseID       *int    `json:"exerciseId"`
	ExerciseName     string  `json:"exerciseName"`
	WeightUsed       float64 `json:"weightUsed"`
	Repetitions      int     `json:"repetitions"`
	Sets             int     `json:"sets"`
	RPE              int     `json:"rpe"`
}

type HistoryPage struct {
	Histories []WorkoutHistory `json:"histories"`
	Page      int              `json:"page"`
	Size      int              `json:"size"`
	Total     int              `json:"total"`
}

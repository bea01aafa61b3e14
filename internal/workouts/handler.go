package workouts

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/workouttracker/internal/auth"
	"github.com/2beens/workouttracker/internal/telemetry/tracing"
	"github.com/2beens/workouttracker/pkg"
)

//go:generate mockgen -source=$GOFILE -destination=workouts_mocks_test.go -package=workouts_test

type workoutsService interface {
	CreateWorkout(ctx context.Context, userID int, in WorkoutInput) (*Workout, error)
	UpdateWorkout(ctx context.Context, userID, workoutID int, in WorkoutInput) (*Workout, error)
	DeleteWorkout(ctx context.Context, userID, workoutID int) error
	GetWorkout(ctx context.Context, userID, workoutID int) (*Workout, error)
	ListWorkouts(ctx context.Context, userID, page, size int) (*Page, error)
	AddExercise(ctx context.Context, userID, workoutID int, in ExerciseInput) (*Exercise, error)
	UpdateExercise(ctx context.Context, userID, workoutID, exerciseID int, in ExerciseInput) (*Exercise, error)
	DeleteExercise(ctx context.Context, userID, workoutID, exerciseID int) error
	ImportRows(ctx context.Context, userID int, rows []ImportRow) ([]Workout, error)
}

type DeleteResponse struct {
	DeletedID int `json:"deletedId"`
}

type ImportResponse struct {
	Imported []Workout `json:"imported"`
}

type Handler struct {
	service       workoutsService
	maxImportSize int64
}

func NewHandler(service workoutsService, maxImportSizeMB int) *Handler {
	if maxImportSizeMB <= 0 {
		maxImportSizeMB = 5
	}
	return &Handler{
		service:       service,
		maxImportSize: int64(maxImportSizeMB) << 20,
	}
}

func (h *Handler) SetupRoutes(r *mux.Router) {
	r.HandleFunc("/workouts", h.HandleCreate).Methods("POST", "OPTIONS").Name("new-workout")
	r.HandleFunc("/workouts/import", h.HandleImport).Methods("POST", "OPTIONS").Name("import-workouts")
	r.HandleFunc("/workouts/page/{page}/size/{size}", h.HandleList).Methods("GET", "OPTIONS").Name("list-workouts")
	r.HandleFunc("/workouts/{id:[0-9]+}", h.HandleGet).Methods("GET", "OPTIONS").Name("get-workout")
	r.HandleFunc("/workouts/{id:[0-9]+}", h.HandleUpdate).Methods("PUT", "OPTIONS").Name("update-workout")
	r.HandleFunc("/workouts/{id:[0-9]+}", h.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-workout")
	r.HandleFunc("/workouts/{id:[0-9]+}/exercises", h.HandleAddExercise).Methods("POST", "OPTIONS").Name("new-exercise")
	r.HandleFunc("/workouts/{id:[0-9]+}/exercises/{exid:[0-9]+}", h.HandleUpdateExercise).Methods("PUT", "OPTIONS").Name("update-exercise")
	r.HandleFunc("/workouts/{id:[0-9]+}/exercises/{exid:[0-9]+}", h.HandleDeleteExercise).Methods("DELETE", "OPTIONS").Name("delete-exercise")
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.create")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	var in WorkoutInput
	if err := pkg.ReadJSONBody(r, &in); err != nil {
		log.Tracef("new workout, read body: %s", err)
		http.Error(w, "invalid workout request", http.StatusBadRequest)
		return
	}

	workout, err := h.service.CreateWorkout(ctx, userID, in)
	if err != nil {
		writeError(w, err, "create workout")
		return
	}
	span.SetAttributes(attribute.Int("workout.id", workout.ID))

	pkg.WriteJSON(w, workout, http.StatusCreated)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.get")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	workoutID, err := pathInt(r, "id")
	if err != nil {
		http.Error(w, "invalid workout id", http.StatusBadRequest)
		return
	}

	workout, err := h.service.GetWorkout(ctx, userID, workoutID)
	if err != nil {
		writeError(w, err, "get workout")
		return
	}

	pkg.WriteJSON(w, workout, http.StatusOK)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.list")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	page, err := pathInt(r, "page")
	if err != nil {
		http.Error(w, "invalid page", http.StatusBadRequest)
		return
	}
	size, err := pathInt(r, "size")
	if err != nil {
		http.Error(w, "invalid size", http.StatusBadRequest)
		return
	}
	if size > 100 {
		http.Error(w, "page size too big", http.StatusBadRequest)
		return
	}
	span.SetAttributes(attribute.Int("page", page), attribute.Int("size", size))

	workoutsPage, err := h.service.ListWorkouts(ctx, userID, page, size)
	if err != nil {
		writeError(w, err, "list workouts")
		return
	}

	pkg.WriteJSON(w, workoutsPage, http.StatusOK)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.update")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	workoutID, err := pathInt(r, "id")
	if err != nil {
		http.Error(w, "invalid workout id", http.StatusBadRequest)
		return
	}

	var in WorkoutInput
	if err := pkg.ReadJSONBody(r, &in); err != nil {
		log.Tracef("update workout, read body: %s", err)
		http.Error(w, "invalid workout request", http.StatusBadRequest)
		return
	}

	workout, err := h.service.UpdateWorkout(ctx, userID, workoutID, in)
	if err != nil {
		writeError(w, err, "update workout")
		return
	}

	pkg.WriteJSON(w, workout, http.StatusOK)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.delete")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	workoutID, err := pathInt(r, "id")
	if err != nil {
		http.Error(w, "invalid workout id", http.StatusBadRequest)
		return
	}

	if err := h.service.DeleteWorkout(ctx, userID, workoutID); err != nil {
		writeError(w, err, "delete workout")
		return
	}

	pkg.WriteJSON(w, DeleteResponse{DeletedID: workoutID}, http.StatusOK)
}

func (h *Handler) HandleAddExercise(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.exercises.add")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	workoutID, err := pathInt(r, "id")
	if err != nil {
		http.Error(w, "invalid workout id", http.StatusBadRequest)
		return
	}

	var in ExerciseInput
	if err := pkg.ReadJSONBody(r, &in); err != nil {
		log.Tracef("new exercise, read body: %s", err)
		http.Error(w, "invalid exercise request", http.StatusBadRequest)
		return
	}

	exercise, err := h.service.AddExercise(ctx, userID, workoutID, in)
	if err != nil {
		writeError(w, err, "add exercise")
		return
	}

	pkg.WriteJSON(w, exercise, http.StatusCreated)
}

func (h *Handler) HandleUpdateExercise(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.exercises.update")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	workoutID, err := pathInt(r, "id")
	if err != nil {
		http.Error(w, "invalid workout id", http.StatusBadRequest)
		return
	}
	exerciseID, err := pathInt(r, "exid")
	if err != nil {
		http.Error(w, "invalid exercise id", http.StatusBadRequest)
		return
	}

	var in ExerciseInput
	if err := pkg.ReadJSONBody(r, &in); err != nil {
		log.Tracef("update exercise, read body: %s", err)
		http.Error(w, "invalid exercise request", http.StatusBadRequest)
		return
	}

	exercise, err := h.service.UpdateExercise(ctx, userID, workoutID, exerciseID, in)
	if err != nil {
		writeError(w, err, "update exercise")
		return
	}

	pkg.WriteJSON(w, exercise, http.StatusOK)
}

func (h *Handler) HandleDeleteExercise(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.exercises.delete")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	workoutID, err := pathInt(r, "id")
	if err != nil {
		http.Error(w, "invalid workout id", http.StatusBadRequest)
		return
	}
	exerciseID, err := pathInt(r, "exid")
	if err != nil {
		http.Error(w, "invalid exercise id", http.StatusBadRequest)
		return
	}

	if err := h.service.DeleteExercise(ctx, userID, workoutID, exerciseID); err != nil {
		writeError(w, err, "delete exercise")
		return
	}

	pkg.WriteJSON(w, DeleteResponse{DeletedID: exerciseID}, http.StatusOK)
}

// HandleImport accepts a multipart upload with the spreadsheet in the "file" field.
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.import")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxImportSize)
	if err := r.ParseMultipartForm(h.maxImportSize); err != nil {
		log.Tracef("import workouts, parse multipart form: %s", err)
		http.Error(w, "invalid import request", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "spreadsheet file missing", http.StatusBadRequest)
		return
	}
	defer func() { _ = file.Close() }()
	span.SetAttributes(attribute.String("file.name", header.Filename))

	rows, err := ParseSpreadsheet(file)
	if err != nil {
		if verr, ok := pkg.AsValidationError(err); ok {
			pkg.WriteValidationErrors(w, verr)
			return
		}
		log.Tracef("import workouts, parse spreadsheet: %s", err)
		pkg.WriteValidationErrors(w, pkg.NewValidationError("Error importing workouts: "+err.Error()))
		return
	}

	imported, err := h.service.ImportRows(ctx, userID, rows)
	if err != nil {
		writeError(w, err, "import workouts")
		return
	}

	pkg.WriteJSON(w, ImportResponse{Imported: imported}, http.StatusCreated)
}

func pathInt(r *http.Request, name string) (int, error) {
	return strconv.Atoi(mux.Vars(r)[name])
}

func writeError(w http.ResponseWriter, err error, op string) {
	if verr, ok := pkg.AsValidationError(err); ok {
		pkg.WriteValidationErrors(w, verr)
		return
	}
	switch {
	case errors.Is(err, ErrWorkoutNotFound):
		http.Error(w, "workout not found", http.StatusNotFound)
	case errors.Is(err, ErrExerciseNotFound):
		http.Error(w, "exercise not found", http.StatusNotFound)
	default:
		log.Errorf("%s: %s", op, err)
		http.Error(w, op+" failed", http.StatusInternalServerError)
	}
}

package training

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
	"github.com/2beens/workouttracker/internal/workouts"
	"github.com/2beens/workouttracker/pkg"
)

//go:generate mockgen -source=$GOFILE -destination=training_mocks_test.go -package=training_test

type trainingService interface {
	NextWorkout(ctx context.Context, userID int) (*workouts.Workout, error)
	CurrentSession(ctx context.Context, userID int) (*WorkoutSession, bool, error)
	InProgressSession(ctx context.Context, userID int) (*WorkoutSession, error)
	StartSession(ctx context.Context, userID, workoutID int) (*WorkoutSession, error)
	GetSession(ctx context.Context, userID, sessionID int) (*WorkoutSession, error)
	RecordPerformance(ctx context.Context, userID, sessionID, exerciseID int, in PerformanceInput) (*ExerciseSession, error)
	RecordSeries(ctx context.Context, userID, sessionID, exerciseID int, in []SeriesInput) (*ExerciseSession, error)
	CompleteSession(ctx context.Context, userID, sessionID int, overrides map[int]PerformanceInput) (*WorkoutHistory, error)
	GetHistory(ctx context.Context, userID, historyID int) (*WorkoutHistory, error)
	ListHistory(ctx context.Context, userID, page, size int) (*HistoryPage, error)
}

type recentWorkouts interface {
	RecentWorkouts(ctx context.Context, userID int) ([]workouts.Workout, error)
}

type CurrentSessionResponse struct {
	Session *WorkoutSession `json:"session"`
	Created bool            `json:"created"`
}

// CompleteRequest optionally carries final values per exercise id.
type CompleteRequest struct {
	Exercises map[int]PerformanceInput `json:"exercises"`
}

type SeriesRequest struct {
	Series []SeriesInput `json:"series"`
}

type DashboardResponse struct {
	RecentWorkouts   []workouts.Workout `json:"recentWorkouts"`
	CurrentSessionID int                `json:"currentSessionId,omitempty"`
}

type Handler struct {
	service trainingService
	recent  recentWorkouts
}

func NewHandler(service trainingService, recent recentWorkouts) *Handler {
	return &Handler{
		service: service,
		recent:  recent,
	}
}

func (h *Handler) SetupRoutes(r *mux.Router) {
	r.HandleFunc("/dashboard", h.HandleDashboard).Methods("GET", "OPTIONS").Name("dashboard")

	trainingRouter := r.PathPrefix("/training").Subrouter()
	trainingRouter.HandleFunc("/next", h.HandleNext).Methods("GET", "OPTIONS").Name("training-next")
	trainingRouter.HandleFunc("/current", h.HandleCurrent).Methods("GET", "OPTIONS").Name("training-current")
	trainingRouter.HandleFunc("/workouts/{id:[0-9]+}/start", h.HandleStart).Methods("POST", "OPTIONS").Name("training-start")
	trainingRouter.HandleFunc("/sessions/{id:[0-9]+}", h.HandleGetSession).Methods("GET", "OPTIONS").Name("training-session")
	trainingRouter.HandleFunc("/sessions/{id:[0-9]+}/exercises/{exid:[0-9]+}", h.HandleRecordPerformance).Methods("PUT", "OPTIONS").Name("training-performance")
	trainingRouter.HandleFunc("/sessions/{id:[0-9]+}/exercises/{exid:[0-9]+}/series", h.HandleRecordSeries).Methods("PUT", "OPTIONS").Name("training-series")
	trainingRouter.HandleFunc("/sessions/{id:[0-9]+}/complete", h.HandleComplete).Methods("POST", "OPTIONS").Name("training-complete")

	r.HandleFunc("/history/page/{page}/size/{size}", h.HandleListHistory).Methods("GET", "OPTIONS").Name("history-list")
	r.HandleFunc("/history/{id:[0-9]+}", h.HandleGetHistory).Methods("GET", "OPTIONS").Name("history-get")
}

func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.training.dashboard")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	recent, err := h.recent.RecentWorkouts(ctx, userID)
	if err != nil {
		writeError(w, err, "dashboard recent workouts")
		return
	}

	resp := DashboardResponse{RecentWorkouts: recent}
	inProgress, err := h.service.InProgressSession(ctx, userID)
	if err != nil {
		writeError(w, err, "dashboard current session")
		return
	}
	if inProgress != nil {
		resp.CurrentSessionID = inProgress.ID
	}

	pkg.WriteJSON(w, resp, http.StatusOK)
}

func (h *Handler) HandleNext(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.training.next")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	next, err := h.service.NextWorkout(ctx, userID)
	if err != nil {
		writeError(w, err, "next workout")
		return
	}
	if next == nil {
		writeError(w, ErrNoWorkouts, "next workout")
		return
	}

	pkg.WriteJSON(w, next, http.StatusOK)
}

func (h *Handler) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.training.current")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	session, created, err := h.service.CurrentSession(ctx, userID)
	if err != nil {
		writeError(w, err, "current session")
		return
	}
	span.SetAttributes(attribute.Int("session.id", session.ID), attribute.Bool("created", created))

	pkg.WriteJSON(w, CurrentSessionResponse{Session: session, Created: created}, http.StatusOK)
}

func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.training.start")
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

	session, err := h.service.StartSession(ctx, userID, workoutID)
	if err != nil {
		writeError(w, err, "start session")
		return
	}

	pkg.WriteJSON(w, session, http.StatusCreated)
}

func (h *Handler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.training.session")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	sessionID, err := pathInt(r, "id")
	if err != nil {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return
	}

	session, err := h.service.GetSession(ctx, userID, sessionID)
	if err != nil {
		writeError(w, err, "get session")
		return
	}

	pkg.WriteJSON(w, session, http.StatusOK)
}

func (h *Handler) HandleRecordPerformance(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.training.performance")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	sessionID, exerciseID, err := sessionAndExerciseIDs(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var in PerformanceInput
	if err := pkg.ReadJSONBody(r, &in); err != nil {
		log.Tracef("record performance, read body: %s", err)
		http.Error(w, "invalid performance request", http.StatusBadRequest)
		return
	}

	es, err := h.service.RecordPerformance(ctx, userID, sessionID, exerciseID, in)
	if err != nil {
		writeError(w, err, "record performance")
		return
	}

	pkg.WriteJSON(w, es, http.StatusOK)
}

func (h *Handler) HandleRecordSeries(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.training.series")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	sessionID, exerciseID, err := sessionAndExerciseIDs(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req SeriesRequest
	if err := pkg.ReadJSONBody(r, &req); err != nil {
		log.Tracef("record series, read body: %s", err)
		http.Error(w, "invalid series request", http.StatusBadRequest)
		return
	}

	es, err := h.service.RecordSeries(ctx, userID, sessionID, exerciseID, req.Series)
	if err != nil {
		writeError(w, err, "record series")
		return
	}

	pkg.WriteJSON(w, es, http.StatusOK)
}

// HandleComplete accepts an empty body, in which case the stored values are recorded as they are.
func (h *Handler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.training.complete")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	sessionID, err := pathInt(r, "id")
	if err != nil {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return
	}

	var req CompleteRequest
	if _, err := pkg.ReadOptionalJSONBody(r, &req); err != nil {
		log.Tracef("complete session, read body: %s", err)
		http.Error(w, "invalid complete request", http.StatusBadRequest)
		return
	}

	history, err := h.service.CompleteSession(ctx, userID, sessionID, req.Exercises)
	if err != nil {
		writeError(w, err, "complete session")
		return
	}
	span.SetAttributes(attribute.Int("history.id", history.ID))

	pkg.WriteJSON(w, history, http.StatusCreated)
}

func (h *Handler) HandleListHistory(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.training.history.list")
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

	historyPage, err := h.service.ListHistory(ctx, userID, page, size)
	if err != nil {
		writeError(w, err, "list history")
		return
	}

	pkg.WriteJSON(w, historyPage, http.StatusOK)
}

func (h *Handler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.training.history.get")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	historyID, err := pathInt(r, "id")
	if err != nil {
		http.Error(w, "invalid history id", http.StatusBadRequest)
		return
	}

	history, err := h.service.GetHistory(ctx, userID, historyID)
	if err != nil {
		writeError(w, err, "get history")
		return
	}

	pkg.WriteJSON(w, history, http.StatusOK)
}

func pathInt(r *http.Request, name string) (int, error) {
	return strconv.Atoi(mux.Vars(r)[name])
}

func sessionAndExerciseIDs(r *http.Request) (int, int, error) {
	sessionID, err := pathInt(r, "id")
	if err != nil {
		return 0, 0, errors.New("invalid session id")
	}
	exerciseID, err := pathInt(r, "exid")
	if err != nil {
		return 0, 0, errors.New("invalid exercise id")
	}
	return sessionID, exerciseID, nil
}

func writeError(w http.ResponseWriter, err error, op string) {
	if verr, ok := pkg.AsValidationError(err); ok {
		pkg.WriteValidationErrors(w, verr)
		return
	}
	switch {
	case errors.Is(err, ErrSessionCompleted):
		http.Error(w, "workout session already completed", http.StatusConflict)
	case errors.Is(err, ErrNoWorkouts):
		http.Error(w, "no workouts defined", http.StatusNotFound)
	case errors.Is(err, ErrSessionNotFound):
		http.Error(w, "workout session not found", http.StatusNotFound)
	case errors.Is(err, ErrExerciseSessionNotFound):
		http.Error(w, "exercise session not found", http.StatusNotFound)
	case errors.Is(err, ErrHistoryNotFound):
		http.Error(w, "workout history not found", http.StatusNotFound)
	case errors.Is(err, workouts.ErrWorkoutNotFound):
		http.Error(w, "workout not found", http.StatusNotFound)
	default:
		log.Errorf("%s: %s", op, err)
		http.Error(w, op+" failed", http.StatusInternalServerError)
	}
}

package users

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/workouttracker/internal/auth"
	"github.com/2beens/workouttracker/internal/middleware"
	"github.com/2beens/workouttracker/internal/telemetry/metrics"
	"github.com/2beens/workouttracker/internal/telemetry/tracing"
	"github.com/2beens/workouttracker/pkg"
)

//go:generate mockgen -source=$GOFILE -destination=users_mocks_test.go -package=users_test

type usersService interface {
	Register(ctx context.Context, in RegisterInput) (*User, error)
	Authenticate(ctx context.Context, username, password string) (*User, error)
	Get(ctx context.Context, userID int) (*User, error)
	UpdateSettings(ctx context.Context, userID int, in SettingsInput) (*User, error)
}

type loginSessions interface {
	Login(ctx context.Context, userID int, createdAt time.Time) (string, error)
	Logout(ctx context.Context, token string) (bool, error)
}

type tokenCache interface {
	Forget(token string)
}

type LoginResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

type Handler struct {
	service    usersService
	sessions   loginSessions
	tokenCache tokenCache
}

func NewHandler(service usersService, sessions loginSessions, tokenCache tokenCache) *Handler {
	return &Handler{
		service:    service,
		sessions:   sessions,
		tokenCache: tokenCache,
	}
}

func (h *Handler) SetupRoutes(
	mainRouter *mux.Router,
	rateLimiter middleware.RequestRateLimiter,
	metricsManager *metrics.Manager,
	allowedPerMin int,
) {
	loginSubrouter := mainRouter.PathPrefix("/a").Subrouter()
	loginSubrouter.HandleFunc("/register", h.HandleRegister).Methods("POST", "OPTIONS").Name("register")
	loginSubrouter.HandleFunc("/login", h.HandleLogin).Methods("POST", "OPTIONS").Name("login")
	loginSubrouter.HandleFunc("/logout", h.HandleLogout).Methods("GET", "OPTIONS").Name("logout")

	// rate limit the register / login endpoints to slow down password guessing
	loginSubrouter.Use(middleware.RateLimit(rateLimiter, "login", allowedPerMin, metricsManager))

	mainRouter.HandleFunc("/settings", h.HandleGetSettings).Methods("GET", "OPTIONS").Name("get-settings")
	mainRouter.HandleFunc("/settings", h.HandleUpdateSettings).Methods("PUT", "OPTIONS").Name("update-settings")
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.register")
	defer span.End()

	var in RegisterInput
	if err := pkg.ReadJSONBody(r, &in); err != nil {
		log.Tracef("register, read body: %s", err)
		http.Error(w, "invalid register request", http.StatusBadRequest)
		return
	}

	user, err := h.service.Register(ctx, in)
	if err != nil {
		if verr, ok := pkg.AsValidationError(err); ok {
			pkg.WriteValidationErrors(w, verr)
			return
		}
		log.Errorf("register user: %s", err)
		http.Error(w, "register failed", http.StatusInternalServerError)
		return
	}
	span.SetAttributes(attribute.Int("user.id", user.ID))

	token, err := h.sessions.Login(ctx, user.ID, time.Now())
	if err != nil {
		log.Errorf("register, login new user %d: %s", user.ID, err)
		http.Error(w, "register failed", http.StatusInternalServerError)
		return
	}

	log.Debugf("new user registered: %d", user.ID)
	pkg.WriteJSON(w, LoginResponse{Token: token, User: user}, http.StatusCreated)
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.login")
	defer span.End()

	var in LoginInput
	if err := pkg.ReadJSONBody(r, &in); err != nil {
		log.Tracef("login, read body: %s", err)
		http.Error(w, "invalid login request", http.StatusBadRequest)
		return
	}

	if in.Username == "" || in.Password == "" {
		pkg.WriteValidationErrors(w, pkg.NewValidationError("Username and password are required."))
		return
	}

	user, err := h.service.Authenticate(ctx, in.Username, in.Password)
	if err != nil {
		if errors.Is(err, ErrWrongCredentials) {
			log.Tracef("failed login attempt for user: %s", in.Username)
			http.Error(w, "error, wrong credentials", http.StatusUnauthorized)
			return
		}
		log.Errorf("login, authenticate: %s", err)
		http.Error(w, "login failed", http.StatusInternalServerError)
		return
	}

	token, err := h.sessions.Login(ctx, user.ID, time.Now())
	if err != nil {
		log.Errorf("login failed, generate token error: %s", err)
		http.Error(w, "generate token error", http.StatusInternalServerError)
		return
	}

	log.Tracef("new login success: %d", user.ID)
	pkg.WriteJSON(w, LoginResponse{Token: token, User: user}, http.StatusOK)
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.logout")
	defer span.End()

	authToken := r.Header.Get(auth.TokenHeader)
	if authToken == "" {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	h.tokenCache.Forget(authToken)
	loggedOut, err := h.sessions.Logout(ctx, authToken)
	if err != nil {
		log.Errorf("logout: %s", err)
		http.Error(w, "logout failed", http.StatusInternalServerError)
		return
	}
	if !loggedOut {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	pkg.WriteTextResponseOK(w, "logged-out")
}

func (h *Handler) HandleGetSettings(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.getsettings")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	user, err := h.service.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		log.Errorf("get settings, user %d: %s", userID, err)
		http.Error(w, "get settings failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSON(w, user, http.StatusOK)
}

func (h *Handler) HandleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.updatesettings")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	var in SettingsInput
	if err := pkg.ReadJSONBody(r, &in); err != nil {
		log.Tracef("update settings, read body: %s", err)
		http.Error(w, "invalid settings request", http.StatusBadRequest)
		return
	}

	user, err := h.service.UpdateSettings(ctx, userID, in)
	if err != nil {
		if verr, ok := pkg.AsValidationError(err); ok {
			pkg.WriteValidationErrors(w, verr)
			return
		}
		if errors.Is(err, ErrUserNotFound) {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		log.Errorf("update settings, user %d: %s", userID, err)
		http.Error(w, "update settings failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSON(w, user, http.StatusOK)
}

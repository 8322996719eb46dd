// internal/api/handler.go
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	custom_errors "review-ladder/internal/errors"
	"review-ladder/internal/leaderboard"
	"review-ladder/internal/model"
)

// Leaderboard is the ranking service behind the read endpoints.
type Leaderboard interface {
	Top(ctx context.Context, w leaderboard.Window, limit int) ([]leaderboard.Entry, error)
	User(ctx context.Context, name string, w leaderboard.Window) (leaderboard.Entry, error)
	Assignments(ctx context.Context, limit int) ([]leaderboard.Assignment, error)
}

// Handler is the container for API dependencies.
type Handler struct {
	lb     Leaderboard
	since  time.Time
	logger *slog.Logger
}

// NewRouter creates and configures a new chi router with all API routes.
// since is the default lower bound of ranking windows. hook, when not nil,
// serves POST /webhook.
func NewRouter(lb Leaderboard, hook http.Handler, since time.Time, logger *slog.Logger) http.Handler {
	h := &Handler{
		lb:     lb,
		since:  since,
		logger: logger,
	}

	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger) // Chi's default logger
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// API Routes
	r.Get("/health", h.healthCheck)
	if hook != nil {
		r.Method(http.MethodPost, "/webhook", hook)
	}
	r.Route("/v1", func(r chi.Router) {
		r.Get("/leaderboard", h.getLeaderboard)
		r.Get("/users/{name}/stats", h.getUserStats)
		r.Get("/assignments", h.getAssignments)
		r.Get("/scores", h.getScores)
	})

	return r
}

// healthCheck is a simple health endpoint.
func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// getLeaderboard handles the request for the ranked users.
// GET /v1/leaderboard?since=T&until=T&limit=N
func (h *Handler) getLeaderboard(w http.ResponseWriter, r *http.Request) {
	window, err := h.parseWindow(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := parseLimit(r, 20)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := h.lb.Top(r.Context(), window, limit)
	if err != nil {
		h.logger.Error("Failed to compute leaderboard", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, entries)
}

// getUserStats handles the request for one user's score breakdown.
// GET /v1/users/{name}/stats?since=T&until=T
func (h *Handler) getUserStats(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	window, err := h.parseWindow(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	entry, err := h.lb.User(r.Context(), name, window)
	if err != nil {
		if errors.Is(err, custom_errors.ErrUserNotFound) {
			respondWithError(w, http.StatusNotFound, "User not found")
			return
		}
		h.logger.Error("Failed to get user stats", "user", name, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, entry)
}

// getAssignments handles the request for the most assigned users.
// GET /v1/assignments?limit=N
func (h *Handler) getAssignments(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, 20)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	assignments, err := h.lb.Assignments(r.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to get assignments", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, assignments)
}

// getScores returns the weight of each kind of contribution.
// GET /v1/scores
func (h *Handler) getScores(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]float64{
		string(model.KindComment):       model.CommentWeight,
		string(model.KindChangeRequest): model.ChangeRequestWeight,
		string(model.KindApproval):      model.ApprovalWeight,
		"merge":                         model.MergeWeight,
	})
}

func (h *Handler) parseWindow(r *http.Request) (leaderboard.Window, error) {
	window := leaderboard.Window{Since: h.since}
	q := r.URL.Query()
	if s := q.Get("since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return window, errors.New("Invalid 'since' parameter. Must be an RFC3339 timestamp.")
		}
		window.Since = t
	}
	if s := q.Get("until"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return window, errors.New("Invalid 'until' parameter. Must be an RFC3339 timestamp.")
		}
		window.Until = t
	}
	if !window.Until.IsZero() && window.Until.Before(window.Since) {
		return window, errors.New("Invalid window. 'until' must not be before 'since'.")
	}
	return window, nil
}

func parseLimit(r *http.Request, def int) (int, error) {
	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		return def, nil
	}
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 || limit > 100 {
		return 0, errors.New("Invalid 'limit' parameter. Must be an integer between 1 and 100.")
	}
	return limit, nil
}

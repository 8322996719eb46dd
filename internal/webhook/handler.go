// internal/webhook/handler.go

// Package webhook receives GitHub webhook deliveries and feeds them into the
// same reconciler the poller uses.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"

	"review-ladder/internal/database"
	"review-ladder/internal/model"
	"review-ladder/internal/reconciler"
)

const (
	// GitHub deliveries are capped at 25 MB.
	maxPayloadBytes = 25 << 20

	signatureHeader = "X-Hub-Signature"
)

// GitHub is the part of the API the handler calls back into. It must not
// share the poller's rate limiter.
type GitHub interface {
	HookRanges(ctx context.Context) ([]string, error)
	Commit(ctx context.Context, sha string) (model.Commit, error)
}

// Options configures request verification.
type Options struct {
	// Secret is the shared webhook secret. Empty disables signature checks.
	Secret string
	// VerifySource rejects deliveries from outside the published hook ranges.
	VerifySource bool
	// MetaTTL is how long the hook ranges are cached.
	MetaTTL time.Duration
}

// Handler is an http.Handler for the webhook endpoint.
type Handler struct {
	gh     GitHub
	store  database.TxRunner
	rec    *reconciler.Reconciler
	opts   Options
	ranges *rangeCache
	logger *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(gh GitHub, store database.TxRunner, rec *reconciler.Reconciler, opts Options, logger *slog.Logger) *Handler {
	return &Handler{
		gh:     gh,
		store:  store,
		rec:    rec,
		opts:   opts,
		ranges: newRangeCache(gh.HookRanges, opts.MetaTTL),
		logger: logger.With("repo", rec.Repo()),
	}
}

// httpError is a rejected delivery.
type httpError struct {
	status  int
	message string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("%d %s", e.status, e.message)
}

var (
	errPermissionDenied = &httpError{http.StatusForbidden, "Permission denied."}
	errNotSupported     = &httpError{http.StatusNotImplemented, "Operation not supported."}
	errNotJSON          = &httpError{http.StatusBadRequest, "Expecting JSON data"}
	errUnexpectedData   = &httpError{http.StatusBadRequest, "Unexpected data"}
	errMalformed        = &httpError{http.StatusBadRequest, "Malformed payload"}
	errUnavailable      = &httpError{http.StatusServiceUnavailable, "Temporarily unavailable"}
	errInternal         = &httpError{http.StatusInternalServerError, "Internal server error"}
)

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With("event", github.WebHookType(r), "delivery", github.DeliveryID(r))

	msg, err := h.handle(w, r, logger)
	if err != nil {
		var he *httpError
		if !errors.As(err, &he) {
			he = errInternal
		}
		logger.Info("Webhook delivery rejected", "status", he.status, "error", err)
		http.Error(w, he.message, he.status)
		return
	}
	if msg == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, msg)
}

// handle verifies and dispatches one delivery. It returns the
// acknowledgment body; an empty body means 204.
func (h *Handler) handle(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (string, error) {
	if h.opts.VerifySource {
		if err := h.verifySource(r); err != nil {
			return "", err
		}
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	if err != nil {
		return "", errMalformed
	}

	if h.opts.Secret != "" {
		if err := h.verifySignature(r.Header.Get(signatureHeader), body); err != nil {
			return "", err
		}
	}

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return "", errNotJSON
	}

	kind := parseEventKind(github.WebHookType(r))
	if kind == eventUnsupported {
		logger.Debug("Ignoring unsupported event")
		return "", nil
	}

	event, err := github.ParseWebHook(github.WebHookType(r), body)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errMalformed, err)
	}
	return h.dispatch(r.Context(), logger, event)
}

func (h *Handler) verifySignature(header string, body []byte) error {
	scheme, _, ok := strings.Cut(header, "=")
	if !ok {
		return errPermissionDenied
	}
	if scheme != "sha1" {
		return errNotSupported
	}
	if err := github.ValidateSignature(header, body, []byte(h.opts.Secret)); err != nil {
		return fmt.Errorf("%w: %w", errPermissionDenied, err)
	}
	return nil
}

func (h *Handler) verifySource(r *http.Request) error {
	addr, err := clientAddr(r)
	if err != nil {
		return fmt.Errorf("%w: %w", errPermissionDenied, err)
	}
	prefixes, err := h.ranges.get(r.Context())
	if err != nil {
		return fmt.Errorf("%w: fetch hook ranges: %w", errPermissionDenied, err)
	}
	for _, p := range prefixes {
		if p.Contains(addr) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s is not a hook source", errPermissionDenied, addr)
}

// storeError maps a failed unit of work onto a response.
func storeError(err error) error {
	if database.IsTransient(err) {
		return fmt.Errorf("%w: %w", errUnavailable, err)
	}
	return err
}

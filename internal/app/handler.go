package app

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/smallwat3r/safes/internal/domain"
	"github.com/smallwat3r/safes/internal/utility"
	"pkt.systems/pslog"
)

const msgSafeNotFound = "safe not found"

type Handler struct {
	repo    domain.SafeRepository
	logger  pslog.Logger
	metrics *Metrics
	webDir  string
}

type HandlerOption func(*Handler)

func WithLogger(logger pslog.Logger) HandlerOption {
	return func(h *Handler) { h.logger = logger }
}

func WithMetrics(m *Metrics) HandlerOption {
	return func(h *Handler) { h.metrics = m }
}

// WithWebDir sets the directory holding index.html and static/.
func WithWebDir(dir string) HandlerOption {
	return func(h *Handler) { h.webDir = dir }
}

func NewHandler(repo domain.SafeRepository, opts ...HandlerOption) *Handler {
	h := &Handler{
		repo:   repo,
		logger: pslog.NoopLogger(),
		webDir: "web",
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// HandleIndexHTML serves the single page app for both / and /safes/{id}.
func (h *Handler) HandleIndexHTML(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, filepath.Join(h.webDir, "index.html"))
}

func (h *Handler) HandleLock(w http.ResponseWriter, r *http.Request) {
	var req domain.LockReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			utility.HttpError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		utility.HttpError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Secrets == "" {
		utility.HttpError(w, http.StatusBadRequest, "secrets is required")
		return
	}
	if req.UnlocksLeft != nil && *req.UnlocksLeft == 0 {
		utility.HttpError(w, http.StatusBadRequest, "unlocks_left must be at least 1")
		return
	}

	contents := domain.Contents{Nonce: req.Nonce, Secrets: req.Secrets}
	id, err := h.repo.LockSafe(r.Context(), req.OpenDuration, req.UnlocksLeft, contents)
	if err != nil {
		h.logger.Error("safe.lock.failed", "error", err, "request_id", GetRequestID(r.Context()))
		utility.HttpError(w, http.StatusInternalServerError, "failed to store safe")
		return
	}
	h.metrics.SafeLocked()

	utility.WriteJSON(w, http.StatusOK, domain.LockRes{Href: domain.SafePath(id)})
}

// HandleUnlock answers unknown, expired and emptied safes the same way.
func (h *Handler) HandleUnlock(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	contents, err := h.repo.UnlockSafe(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.metrics.UnlockAttempt(false)
			utility.HttpError(w, http.StatusNotFound, msgSafeNotFound)
			return
		}
		h.logger.Error("safe.unlock.failed", "error", err, "request_id", GetRequestID(r.Context()))
		utility.HttpError(w, http.StatusInternalServerError, "failed to open safe")
		return
	}
	h.metrics.UnlockAttempt(true)

	utility.WriteJSON(w, http.StatusOK, contents)
}

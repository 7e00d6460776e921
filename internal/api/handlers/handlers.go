package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dvloznov/budget-tracker/internal/api/middleware"
	"github.com/dvloznov/budget-tracker/internal/domain"
	"github.com/dvloznov/budget-tracker/internal/jobs"
	"github.com/dvloznov/budget-tracker/internal/logger"
	"github.com/dvloznov/budget-tracker/internal/pipeline"
	"github.com/dvloznov/budget-tracker/internal/views"
	"github.com/go-chi/chi/v5"
)

// multipartOverhead is allowed on top of the file limit for form boundaries
// and headers.
const multipartOverhead = 1 << 20

// ImportService is the import workflow used by ImportsHandler.
type ImportService interface {
	Preview(ctx context.Context, identity domain.Identity, filename string, content []byte) (pipeline.SessionView, error)
	Session(ctx context.Context, identity domain.Identity, importID string) (pipeline.SessionView, error)
	Discard(ctx context.Context, identity domain.Identity, importID string) error
	ToggleRow(ctx context.Context, identity domain.Identity, importID, tempID string) (pipeline.SessionView, error)
	ToggleAll(ctx context.Context, identity domain.Identity, importID string) (pipeline.SessionView, error)
	BeginEdit(ctx context.Context, identity domain.Identity, importID, tempID string) (domain.RowDraft, error)
	UpdateDraft(ctx context.Context, identity domain.Identity, importID string, draft domain.RowDraft) error
	CommitEdit(ctx context.Context, identity domain.Identity, importID string) (pipeline.EditOutcome, error)
	CancelEdit(ctx context.Context, identity domain.Identity, importID string) error
	Commit(ctx context.Context, identity domain.Identity, importID, idempotencyKey string) (pipeline.CommitResult, error)
	Categories(ctx context.Context, identity domain.Identity) ([]domain.Category, error)
}

// TransactionViews serves the read side after imports.
type TransactionViews interface {
	Transactions(ctx context.Context, userID string) ([]domain.TransactionRecord, error)
	Summary(ctx context.Context, userID string) (views.Summary, error)
}

// StatementLister lists archived statement records.
type StatementLister interface {
	ListStatements(ctx context.Context, userID string) ([]domain.Statement, error)
}

// ImportsHandler handles the statement import endpoints.
type ImportsHandler struct {
	svc            ImportService
	maxUploadBytes int64
}

// NewImportsHandler creates a new imports handler.
func NewImportsHandler(svc ImportService, maxUploadBytes int64) *ImportsHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = pipeline.DefaultMaxUploadBytes
	}
	return &ImportsHandler{svc: svc, maxUploadBytes: maxUploadBytes}
}

// Upload handles POST /api/imports
func (h *ImportsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)
	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			middleware.WriteError(w, http.StatusRequestEntityTooLarge, "File is too large")
			return
		}
		middleware.WriteError(w, http.StatusBadRequest, "A statement file is required in the 'file' field")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		log.Error().Err(err).Msg("Failed to read upload")
		middleware.WriteError(w, http.StatusBadRequest, "Failed to read uploaded file")
		return
	}
	if int64(len(content)) > h.maxUploadBytes {
		middleware.WriteError(w, http.StatusRequestEntityTooLarge, "File is too large")
		return
	}

	view, err := h.svc.Preview(ctx, identity(r), filepath.Base(header.Filename), content)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, view)
}

// Get handles GET /api/imports/{importID}
func (h *ImportsHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.Session(r.Context(), identity(r), chi.URLParam(r, "importID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, view)
}

// Discard handles DELETE /api/imports/{importID}
func (h *ImportsHandler) Discard(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Discard(r.Context(), identity(r), chi.URLParam(r, "importID")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleRow handles POST /api/imports/{importID}/rows/{tempID}/toggle
func (h *ImportsHandler) ToggleRow(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.ToggleRow(r.Context(), identity(r), chi.URLParam(r, "importID"), chi.URLParam(r, "tempID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, view)
}

// ToggleAll handles POST /api/imports/{importID}/toggle-all
func (h *ImportsHandler) ToggleAll(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.ToggleAll(r.Context(), identity(r), chi.URLParam(r, "importID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, view)
}

// BeginEdit handles POST /api/imports/{importID}/rows/{tempID}/edit
func (h *ImportsHandler) BeginEdit(w http.ResponseWriter, r *http.Request) {
	draft, err := h.svc.BeginEdit(r.Context(), identity(r), chi.URLParam(r, "importID"), chi.URLParam(r, "tempID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, draft)
}

// UpdateDraft handles PUT /api/imports/{importID}/edit
func (h *ImportsHandler) UpdateDraft(w http.ResponseWriter, r *http.Request) {
	var draft domain.RowDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.svc.UpdateDraft(r.Context(), identity(r), chi.URLParam(r, "importID"), draft); err != nil {
		writeServiceError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, draft)
}

// CommitEdit handles POST /api/imports/{importID}/edit/commit
func (h *ImportsHandler) CommitEdit(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.svc.CommitEdit(r.Context(), identity(r), chi.URLParam(r, "importID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, outcome)
}

// CancelEdit handles DELETE /api/imports/{importID}/edit
func (h *ImportsHandler) CancelEdit(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.CancelEdit(r.Context(), identity(r), chi.URLParam(r, "importID")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Commit handles POST /api/imports/{importID}/commit
func (h *ImportsHandler) Commit(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.Commit(r.Context(), identity(r), chi.URLParam(r, "importID"), r.Header.Get("Idempotency-Key"))
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			log := logger.FromContext(r.Context())
			log.Error().Err(err).Msg("Import commit failed")
			result.Error = "Failed to save transactions. Please try again."
		}
		middleware.WriteJSON(w, status, result)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, result)
}

// Categories handles GET /api/categories
func (h *ImportsHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.svc.Categories(r.Context(), identity(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"categories": categories,
		"count":      len(categories),
	})
}

// TransactionsHandler handles transaction-related endpoints.
type TransactionsHandler struct {
	views TransactionViews
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(v TransactionViews) *TransactionsHandler {
	return &TransactionsHandler{views: v}
}

// ListTransactions handles GET /api/transactions
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	transactions, err := h.views.Transactions(r.Context(), identity(r).UserID)
	if err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Msg("Failed to list transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list transactions")
		return
	}

	// Return array directly for frontend compatibility
	if transactions == nil {
		transactions = []domain.TransactionRecord{}
	}
	middleware.WriteJSON(w, http.StatusOK, transactions)
}

// Summary handles GET /api/summary
func (h *TransactionsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.views.Summary(r.Context(), identity(r).UserID)
	if err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Msg("Failed to build summary")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to build summary")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, summary)
}

// StatementsHandler handles archived statement endpoints.
type StatementsHandler struct {
	repo StatementLister
}

// NewStatementsHandler creates a new statements handler.
func NewStatementsHandler(repo StatementLister) *StatementsHandler {
	return &StatementsHandler{repo: repo}
}

// ListStatements handles GET /api/statements
func (h *StatementsHandler) ListStatements(w http.ResponseWriter, r *http.Request) {
	statements, err := h.repo.ListStatements(r.Context(), identity(r).UserID)
	if err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Msg("Failed to list statements")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list statements")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"statements": statements,
		"count":      len(statements),
	})
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore) *JobsHandler {
	return &JobsHandler{store: store}
}

// GetJob handles GET /api/jobs/{jobID}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil || job.UserID != identity(r).UserID {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.JobFilter{
		UserID:   identity(r).UserID,
		ImportID: query.Get("import_id"),
		Status:   jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}

// Health handles GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func identity(r *http.Request) domain.Identity {
	id, _ := domain.IdentityFromContext(r.Context())
	return id
}

// statusFor maps pipeline errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, pipeline.ErrSessionNotFound),
		errors.Is(err, pipeline.ErrRowNotFound),
		errors.Is(err, jobs.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrCommitInFlight),
		errors.Is(err, pipeline.ErrNotEditing):
		return http.StatusConflict
	case errors.Is(err, pipeline.ErrUnreadableFile),
		errors.Is(err, pipeline.ErrNoTransactions),
		pipeline.IsRejected(err):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
		middleware.WriteError(w, status, "Internal server error")
		return
	}
	middleware.WriteError(w, status, publicMessage(err))
}

// publicMessage strips internal wrapping from parse failures so clients see
// only the user-facing reason.
func publicMessage(err error) string {
	for _, sentinel := range []error{pipeline.ErrUnreadableFile, pipeline.ErrNoTransactions, pipeline.ErrUnauthenticated} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}

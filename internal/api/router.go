// Package api assembles the HTTP surface of the import service.
package api

import (
	"net/http"

	"github.com/dvloznov/budget-tracker/internal/api/handlers"
	"github.com/dvloznov/budget-tracker/internal/api/middleware"
	"github.com/dvloznov/budget-tracker/internal/jobs"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Deps are the collaborators the router serves.
type Deps struct {
	Log            zerolog.Logger
	Imports        handlers.ImportService
	Views          handlers.TransactionViews
	Statements     handlers.StatementLister
	Jobs           jobs.JobStore
	MaxUploadBytes int64
}

// NewRouter builds the chi router with the middleware chain and all routes.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(d.Log))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(d.Log))
	r.Use(middleware.CORS())

	r.Get("/health", handlers.Health)

	imports := handlers.NewImportsHandler(d.Imports, d.MaxUploadBytes)
	transactions := handlers.NewTransactionsHandler(d.Views)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth)

		r.Get("/categories", imports.Categories)
		r.Get("/transactions", transactions.ListTransactions)
		r.Get("/summary", transactions.Summary)

		r.Route("/imports", func(r chi.Router) {
			r.Post("/", imports.Upload)
			r.Route("/{importID}", func(r chi.Router) {
				r.Get("/", imports.Get)
				r.Delete("/", imports.Discard)
				r.Post("/toggle-all", imports.ToggleAll)
				r.Post("/rows/{tempID}/toggle", imports.ToggleRow)
				r.Post("/rows/{tempID}/edit", imports.BeginEdit)
				r.Put("/edit", imports.UpdateDraft)
				r.Delete("/edit", imports.CancelEdit)
				r.Post("/edit/commit", imports.CommitEdit)
				r.Post("/commit", imports.Commit)
			})
		})

		if d.Statements != nil {
			statements := handlers.NewStatementsHandler(d.Statements)
			r.Get("/statements", statements.ListStatements)
		}

		if d.Jobs != nil {
			jobsHandler := handlers.NewJobsHandler(d.Jobs)
			r.Get("/jobs", jobsHandler.ListJobs)
			r.Get("/jobs/{jobID}", jobsHandler.GetJob)
		}
	})

	return r
}

package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/budget-tracker/internal/domain"
	"github.com/dvloznov/budget-tracker/internal/logger"
)

// ServiceConfig wires the collaborators of a Service.
type ServiceConfig struct {
	Writer     TransactionWriter
	Categories CategoryLister
	Views      ViewInvalidator
	Archiver   StatementArchiver
	Sessions   *SessionStore
	Clock      Clock

	StrictDates   bool
	ProgressEvery int
}

// Service runs statement imports from upload through commit.
type Service struct {
	sessions      *SessionStore
	validator     *Validator
	normalizer    *Normalizer
	committer     *Committer
	categories    CategoryLister
	archiver      StatementArchiver
	now           Clock
	progressEvery int
}

// NewService creates a Service from cfg.
func NewService(cfg ServiceConfig) *Service {
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	sessions := cfg.Sessions
	if sessions == nil {
		sessions = NewSessionStore(DefaultSessionTTL, now)
	}
	validator := NewValidator(WithClock(now))

	return &Service{
		sessions:      sessions,
		validator:     validator,
		normalizer:    NewNormalizer(validator, now, NormalizerOptions{StrictDates: cfg.StrictDates}),
		committer:     NewCommitter(cfg.Writer, cfg.Views, validator),
		categories:    cfg.Categories,
		archiver:      cfg.Archiver,
		now:           now,
		progressEvery: cfg.ProgressEvery,
	}
}

// Sessions exposes the session store, mainly for the idle sweeper.
func (s *Service) Sessions() *SessionStore {
	return s.sessions
}

// Preview parses and normalizes an uploaded statement and opens a session
// for it. Nothing is persisted.
func (s *Service) Preview(ctx context.Context, identity domain.Identity, filename string, content []byte) (SessionView, error) {
	if identity.IsZero() {
		return SessionView{}, ErrUnauthenticated
	}
	log := logger.FromContext(ctx)

	opts := ParseOptions{
		ProgressEvery: s.progressEvery,
		OnProgress: func(processed, total int) {
			log.Debug().Str("filename", filename).Int("processed", processed).Int("total", total).Msg("Parsing statement")
		},
	}

	state := &PipelineState{
		Identity: identity,
		Filename: filename,
		Content:  content,
	}
	p := NewPipeline(
		&ParseStep{Options: opts},
		&NormalizeStep{Normalizer: s.normalizer},
		&OpenSessionStep{Store: s.sessions, Validator: s.validator, Now: s.now},
		&ArchiveStep{Archiver: s.archiver},
	)
	if err := p.Execute(ctx, state); err != nil {
		return SessionView{}, fmt.Errorf("Preview: %w", err)
	}

	view := state.Session.View()
	log.Info().
		Str("import_id", view.ID).
		Str("filename", filename).
		Int("rows", view.TotalCount).
		Int("invalid", view.InvalidCount).
		Msg("Statement preview ready")

	return view, nil
}

// Session returns a snapshot of an import session.
func (s *Service) Session(ctx context.Context, identity domain.Identity, importID string) (SessionView, error) {
	var view SessionView
	err := s.sessions.With(importID, identity, func(sess *Session) error {
		view = sess.View()
		return nil
	})
	return view, err
}

// Discard drops an import session without writing anything.
func (s *Service) Discard(ctx context.Context, identity domain.Identity, importID string) error {
	return s.sessions.Delete(importID, identity)
}

// ToggleRow flips the selection of one row.
func (s *Service) ToggleRow(ctx context.Context, identity domain.Identity, importID, tempID string) (SessionView, error) {
	return s.mutate(identity, importID, func(sess *Session) error {
		_, err := sess.ToggleRow(tempID)
		return err
	})
}

// ToggleAll selects every row, or deselects every row when all are selected.
func (s *Service) ToggleAll(ctx context.Context, identity domain.Identity, importID string) (SessionView, error) {
	return s.mutate(identity, importID, func(sess *Session) error {
		_, err := sess.ToggleAll()
		return err
	})
}

// BeginEdit opens the edit buffer for one row.
func (s *Service) BeginEdit(ctx context.Context, identity domain.Identity, importID, tempID string) (domain.RowDraft, error) {
	var draft domain.RowDraft
	err := s.sessions.With(importID, identity, func(sess *Session) error {
		var err error
		draft, err = sess.BeginEdit(tempID)
		return err
	})
	return draft, err
}

// UpdateDraft replaces the edit buffer contents.
func (s *Service) UpdateDraft(ctx context.Context, identity domain.Identity, importID string, draft domain.RowDraft) error {
	return s.sessions.With(importID, identity, func(sess *Session) error {
		return sess.UpdateDraft(draft)
	})
}

// CommitEdit applies the edit buffer to its row and re-validates it.
func (s *Service) CommitEdit(ctx context.Context, identity domain.Identity, importID string) (EditOutcome, error) {
	var outcome EditOutcome
	err := s.sessions.With(importID, identity, func(sess *Session) error {
		var err error
		outcome, err = sess.CommitEdit()
		return err
	})
	return outcome, err
}

// CancelEdit discards the edit buffer.
func (s *Service) CancelEdit(ctx context.Context, identity domain.Identity, importID string) error {
	return s.sessions.With(importID, identity, func(sess *Session) error {
		sess.CancelEdit()
		return nil
	})
}

// Commit imports the selected rows of a session. The session is removed on
// success and stays open for correction on failure. An empty idempotencyKey
// defaults to the import ID.
func (s *Service) Commit(ctx context.Context, identity domain.Identity, importID, idempotencyKey string) (CommitResult, error) {
	var rows []domain.ParsedTransaction
	err := s.sessions.With(importID, identity, func(sess *Session) error {
		var err error
		rows, err = sess.beginCommit()
		return err
	})
	if err != nil {
		return failed(err)
	}

	if idempotencyKey == "" {
		idempotencyKey = importID
	}

	result, err := s.committer.Commit(ctx, identity, rows, idempotencyKey)
	if err != nil {
		_ = s.sessions.With(importID, identity, func(sess *Session) error {
			sess.endCommit()
			return nil
		})
		return result, err
	}

	s.sessions.remove(importID)
	return result, nil
}

// Categories lists the categories the user can assign during correction.
func (s *Service) Categories(ctx context.Context, identity domain.Identity) ([]domain.Category, error) {
	if identity.IsZero() {
		return nil, ErrUnauthenticated
	}
	if s.categories == nil {
		return []domain.Category{}, nil
	}
	cats, err := s.categories.ListCategories(ctx, identity.UserID)
	if err != nil {
		return nil, fmt.Errorf("Categories: %w", err)
	}
	return cats, nil
}

func (s *Service) mutate(identity domain.Identity, importID string, fn func(*Session) error) (SessionView, error) {
	var view SessionView
	err := s.sessions.With(importID, identity, func(sess *Session) error {
		if err := fn(sess); err != nil {
			return err
		}
		view = sess.View()
		return nil
	})
	return view, err
}

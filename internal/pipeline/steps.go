package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/budget-tracker/internal/domain"
	"github.com/dvloznov/budget-tracker/internal/logger"
	"github.com/google/uuid"
)

// PipelineStep represents a single step in the preview pipeline.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	Identity domain.Identity
	Filename string
	Content  []byte

	ImportID string
	RawRows  []RawRow
	Rows     []*domain.ParsedTransaction
	Session  *Session
}

// Step 1: ParseStep reads the uploaded file into raw rows.
type ParseStep struct {
	Options ParseOptions
}

func (s *ParseStep) Execute(ctx context.Context, state *PipelineState) error {
	rows, err := ParseFile(state.Filename, bytes.NewReader(state.Content), s.Options)
	if err != nil {
		return err
	}
	state.RawRows = rows
	return nil
}

// Step 2: NormalizeStep maps raw rows onto validated transactions.
type NormalizeStep struct {
	Normalizer *Normalizer
}

func (s *NormalizeStep) Execute(ctx context.Context, state *PipelineState) error {
	rows, err := s.Normalizer.NormalizeAll(state.RawRows)
	if err != nil {
		return err
	}
	state.Rows = rows
	return nil
}

// Step 3: OpenSessionStep registers the rows as a new import session.
type OpenSessionStep struct {
	Store     *SessionStore
	Validator *Validator
	Now       Clock
}

func (s *OpenSessionStep) Execute(ctx context.Context, state *PipelineState) error {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	if state.ImportID == "" {
		state.ImportID = uuid.NewString()
	}
	session := NewSession(state.ImportID, state.Identity, state.Filename, state.Rows, s.Validator, now())
	s.Store.Add(session)
	state.Session = session
	return nil
}

// Step 4: ArchiveStep hands the original file to the archiver. Failures are
// logged and do not fail the preview.
type ArchiveStep struct {
	Archiver StatementArchiver
}

func (s *ArchiveStep) Execute(ctx context.Context, state *PipelineState) error {
	if s.Archiver == nil {
		return nil
	}
	if err := s.Archiver.ArchiveStatement(ctx, state.Identity.UserID, state.ImportID, state.Filename, state.Content); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("import_id", state.ImportID).Msg("Failed to schedule statement archive")
	}
	return nil
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}

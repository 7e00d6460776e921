package pipeline

import (
	"fmt"
	"time"

	"github.com/dvloznov/budget-tracker/internal/domain"
	"github.com/shopspring/decimal"
)

// Session holds the rows of one uploaded statement while the user reviews and
// corrects them. A Session is not safe for concurrent use; SessionStore
// serializes access.
type Session struct {
	ID        string
	Owner     domain.Identity
	Filename  string
	CreatedAt time.Time

	rows       []*domain.ParsedTransaction
	index      map[string]int
	validator  *Validator
	edit       *editBuffer
	committing bool
}

// editBuffer is the scratch copy of the single row being edited.
type editBuffer struct {
	tempID string
	draft  domain.RowDraft
}

// EditOutcome reports the row after an edit was applied. BecameValid is an
// advisory flag for the UI and has no effect on state.
type EditOutcome struct {
	Row         domain.ParsedTransaction `json:"row"`
	BecameValid bool                     `json:"became_valid"`
}

// RowErrors groups the validation errors of one invalid row.
type RowErrors struct {
	TempID    string                   `json:"temp_id"`
	RowNumber int                      `json:"row_number"`
	Errors    []domain.ValidationError `json:"errors"`
}

// SessionView is a point-in-time snapshot of a session with its derived totals.
type SessionView struct {
	ID            string                     `json:"id"`
	Filename      string                     `json:"filename"`
	CreatedAt     time.Time                  `json:"created_at"`
	Rows          []domain.ParsedTransaction `json:"rows"`
	TotalCount    int                        `json:"total_count"`
	SelectedCount int                        `json:"selected_count"`
	ValidCount    int                        `json:"valid_count"`
	InvalidCount  int                        `json:"invalid_count"`
	NetTotal      decimal.Decimal            `json:"net_total"`
	Errors        []RowErrors                `json:"errors"`
	EditingTempID string                     `json:"editing_temp_id,omitempty"`
	CommitLabel   string                     `json:"commit_label"`
	CanCommit     bool                       `json:"can_commit"`
}

// NewSession wraps normalized rows in a session owned by owner.
func NewSession(id string, owner domain.Identity, filename string, rows []*domain.ParsedTransaction, v *Validator, createdAt time.Time) *Session {
	if v == nil {
		v = NewValidator()
	}
	index := make(map[string]int, len(rows))
	for i, row := range rows {
		index[row.TempID] = i
	}
	return &Session{
		ID:        id,
		Owner:     owner,
		Filename:  filename,
		CreatedAt: createdAt,
		rows:      rows,
		index:     index,
		validator: v,
	}
}

func (s *Session) row(tempID string) (*domain.ParsedTransaction, error) {
	i, ok := s.index[tempID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRowNotFound, tempID)
	}
	return s.rows[i], nil
}

func (s *Session) checkMutable() error {
	if s.committing {
		return ErrCommitInFlight
	}
	return nil
}

// Rows returns copies of all rows in source order.
func (s *Session) Rows() []domain.ParsedTransaction {
	out := make([]domain.ParsedTransaction, len(s.rows))
	for i, r := range s.rows {
		out[i] = *r
	}
	return out
}

// Row returns a copy of one row.
func (s *Session) Row(tempID string) (domain.ParsedTransaction, error) {
	r, err := s.row(tempID)
	if err != nil {
		return domain.ParsedTransaction{}, err
	}
	return *r, nil
}

// ToggleRow flips the selection of one row and returns the new value.
func (s *Session) ToggleRow(tempID string) (bool, error) {
	if err := s.checkMutable(); err != nil {
		return false, err
	}
	r, err := s.row(tempID)
	if err != nil {
		return false, err
	}
	r.IsSelected = !r.IsSelected
	return r.IsSelected, nil
}

// ToggleAll deselects every row when all are selected, otherwise selects every
// row. It returns the selection state applied.
func (s *Session) ToggleAll() (bool, error) {
	if err := s.checkMutable(); err != nil {
		return false, err
	}
	selectAll := !s.allSelected()
	for _, r := range s.rows {
		r.IsSelected = selectAll
	}
	return selectAll, nil
}

func (s *Session) allSelected() bool {
	for _, r := range s.rows {
		if !r.IsSelected {
			return false
		}
	}
	return true
}

// BeginEdit snapshots the editable fields of a row into the edit buffer.
// Starting an edit discards any edit in progress on another row.
func (s *Session) BeginEdit(tempID string) (domain.RowDraft, error) {
	if err := s.checkMutable(); err != nil {
		return domain.RowDraft{}, err
	}
	r, err := s.row(tempID)
	if err != nil {
		return domain.RowDraft{}, err
	}
	s.edit = &editBuffer{tempID: tempID, draft: r.Draft()}
	return s.edit.draft, nil
}

// EditingID returns the temp ID of the row being edited, or "".
func (s *Session) EditingID() string {
	if s.edit == nil {
		return ""
	}
	return s.edit.tempID
}

// Draft returns the current edit buffer.
func (s *Session) Draft() (domain.RowDraft, error) {
	if s.edit == nil {
		return domain.RowDraft{}, ErrNotEditing
	}
	return s.edit.draft, nil
}

// UpdateDraft replaces the edit buffer contents without touching the row.
func (s *Session) UpdateDraft(d domain.RowDraft) error {
	if err := s.checkMutable(); err != nil {
		return err
	}
	if s.edit == nil {
		return ErrNotEditing
	}
	s.edit.draft = d
	return nil
}

// CommitEdit applies the edit buffer to its row and re-validates the row from
// scratch. Selection is left as it was.
func (s *Session) CommitEdit() (EditOutcome, error) {
	if err := s.checkMutable(); err != nil {
		return EditOutcome{}, err
	}
	if s.edit == nil {
		return EditOutcome{}, ErrNotEditing
	}
	r, err := s.row(s.edit.tempID)
	if err != nil {
		return EditOutcome{}, err
	}

	wasValid := r.IsValid
	r.Apply(s.edit.draft)
	r.SetValidationErrors(s.validator.Validate(r.Draft()))
	s.edit = nil

	return EditOutcome{Row: *r, BecameValid: !wasValid && r.IsValid}, nil
}

// CancelEdit drops the edit buffer.
func (s *Session) CancelEdit() {
	s.edit = nil
}

// Selected returns copies of the rows the user has selected.
func (s *Session) Selected() []domain.ParsedTransaction {
	var out []domain.ParsedTransaction
	for _, r := range s.rows {
		if r.IsSelected {
			out = append(out, *r)
		}
	}
	return out
}

// Eligible returns the rows that are both selected and valid.
func (s *Session) Eligible() []domain.ParsedTransaction {
	var out []domain.ParsedTransaction
	for _, r := range s.rows {
		if r.IsSelected && r.IsValid {
			out = append(out, *r)
		}
	}
	return out
}

// SelectedCount returns the number of selected rows.
func (s *Session) SelectedCount() int {
	n := 0
	for _, r := range s.rows {
		if r.IsSelected {
			n++
		}
	}
	return n
}

// NetTotal sums selected rows with credits positive and debits negative.
func (s *Session) NetTotal() decimal.Decimal {
	total := decimal.Zero
	for _, r := range s.rows {
		if r.IsSelected {
			total = total.Add(r.SignedAmount())
		}
	}
	return total
}

// ValidCount returns the number of rows without validation errors.
func (s *Session) ValidCount() int {
	n := 0
	for _, r := range s.rows {
		if r.IsValid {
			n++
		}
	}
	return n
}

// InvalidCount returns the number of rows with validation errors.
func (s *Session) InvalidCount() int {
	return len(s.rows) - s.ValidCount()
}

func (s *Session) invalidSelectedCount() int {
	n := 0
	for _, r := range s.rows {
		if r.IsSelected && !r.IsValid {
			n++
		}
	}
	return n
}

// ErrorSummary lists the errors of every invalid row in source order.
func (s *Session) ErrorSummary() []RowErrors {
	out := []RowErrors{}
	for _, r := range s.rows {
		if r.IsValid {
			continue
		}
		out = append(out, RowErrors{TempID: r.TempID, RowNumber: r.RowNumber, Errors: r.ValidationErrors})
	}
	return out
}

// CanCommit reports whether the selection may be imported now.
func (s *Session) CanCommit() bool {
	return !s.committing && s.SelectedCount() > 0 && s.invalidSelectedCount() == 0
}

// CommitLabel is the text of the import action for the current state.
func (s *Session) CommitLabel() string {
	if s.committing {
		return "Importing..."
	}
	if n := s.invalidSelectedCount(); n > 0 {
		return fmt.Sprintf("Fix %d Error(s) to Import", n)
	}
	return fmt.Sprintf("Import %d Transaction(s)", s.SelectedCount())
}

// View snapshots the session and its derived aggregates.
func (s *Session) View() SessionView {
	valid := s.ValidCount()
	return SessionView{
		ID:            s.ID,
		Filename:      s.Filename,
		CreatedAt:     s.CreatedAt,
		Rows:          s.Rows(),
		TotalCount:    len(s.rows),
		SelectedCount: s.SelectedCount(),
		ValidCount:    valid,
		InvalidCount:  len(s.rows) - valid,
		NetTotal:      s.NetTotal(),
		Errors:        s.ErrorSummary(),
		EditingTempID: s.EditingID(),
		CommitLabel:   s.CommitLabel(),
		CanCommit:     s.CanCommit(),
	}
}

// beginCommit marks the session as in flight and returns the selected rows.
// The edit buffer survives so a failed commit leaves the draft intact.
func (s *Session) beginCommit() ([]domain.ParsedTransaction, error) {
	if s.committing {
		return nil, ErrCommitInFlight
	}
	s.committing = true
	return s.Selected(), nil
}

// endCommit clears the in-flight flag after a failed commit so the user can retry.
func (s *Session) endCommit() {
	s.committing = false
}

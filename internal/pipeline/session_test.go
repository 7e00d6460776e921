package pipeline

import (
	"errors"
	"strings"
	"testing"

	"github.com/dvloznov/budget-tracker/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testOwner = domain.Identity{UserID: "user-1"}

// newTestSession builds a session from CSV text.
func newTestSession(t *testing.T, csvText string) *Session {
	t.Helper()
	raws, err := ParseFile("statement.csv", strings.NewReader(csvText), ParseOptions{})
	require.NoError(t, err)
	n := newTestNormalizer(NormalizerOptions{})
	rows, err := n.NormalizeAll(raws)
	require.NoError(t, err)
	return NewSession("imp-1", testOwner, "statement.csv", rows, n.validator, fixedNow)
}

const mixedStatement = `Date,Description,Amount,Type
01/10/2025,Salary Payment,5000.00,credit
02/10/2025,Grocery Shopping,-150.50,
16/10/2025,Concert Tickets,80.00,debit
03/10/2025,Mystery,0,debit
`

func TestSession_InitialState(t *testing.T) {
	s := newTestSession(t, mixedStatement)

	view := s.View()
	assert.Equal(t, 4, view.TotalCount)
	assert.Equal(t, 4, view.SelectedCount)
	assert.Equal(t, 2, view.ValidCount)
	assert.Equal(t, 2, view.InvalidCount)
	assert.Len(t, view.Errors, 2)
	assert.Equal(t, 4, view.Errors[0].RowNumber)
	assert.Equal(t, "Fix 2 Error(s) to Import", view.CommitLabel)
	assert.False(t, view.CanCommit)

	// 5000 - 150.50 - 80 - 0
	assert.True(t, decimal.RequireFromString("4769.50").Equal(view.NetTotal), view.NetTotal.String())
}

func TestSession_EligibleExcludesInvalidSelectedRows(t *testing.T) {
	s := newTestSession(t, mixedStatement)

	eligible := s.Eligible()
	require.Len(t, eligible, 2)
	for _, r := range eligible {
		assert.True(t, r.IsSelected)
		assert.True(t, r.IsValid)
	}
	assert.Len(t, s.Selected(), 4)
}

func TestSession_ToggleRow(t *testing.T) {
	s := newTestSession(t, mixedStatement)

	selected, err := s.ToggleRow("tmp-3")
	require.NoError(t, err)
	assert.False(t, selected)

	row, err := s.Row("tmp-3")
	require.NoError(t, err)
	assert.False(t, row.IsSelected)
	assert.False(t, row.IsValid, "toggling does not touch validity")

	_, err = s.ToggleRow("missing")
	assert.True(t, errors.Is(err, ErrRowNotFound))
}

func TestSession_DeselectingInvalidRowsEnablesCommit(t *testing.T) {
	s := newTestSession(t, mixedStatement)

	_, err := s.ToggleRow("tmp-3")
	require.NoError(t, err)
	assert.Equal(t, "Fix 1 Error(s) to Import", s.CommitLabel())

	_, err = s.ToggleRow("tmp-4")
	require.NoError(t, err)
	assert.Equal(t, "Import 2 Transaction(s)", s.CommitLabel())
	assert.True(t, s.CanCommit())
	assert.True(t, decimal.RequireFromString("4849.50").Equal(s.NetTotal()))
}

func TestSession_ToggleAll(t *testing.T) {
	s := newTestSession(t, mixedStatement)

	state, err := s.ToggleAll()
	require.NoError(t, err)
	assert.False(t, state)
	assert.Equal(t, 0, s.SelectedCount())
	assert.Equal(t, "Import 0 Transaction(s)", s.CommitLabel())
	assert.False(t, s.CanCommit())
	assert.True(t, decimal.Zero.Equal(s.NetTotal()))

	_, err = s.ToggleRow("tmp-1")
	require.NoError(t, err)

	state, err = s.ToggleAll()
	require.NoError(t, err)
	assert.True(t, state, "partial selection selects everything")
	assert.Equal(t, 4, s.SelectedCount())
}

func TestSession_EditFixesAmount(t *testing.T) {
	s := newTestSession(t, mixedStatement)

	draft, err := s.BeginEdit("tmp-4")
	require.NoError(t, err)
	assert.True(t, decimal.Zero.Equal(draft.Amount))
	assert.Equal(t, "tmp-4", s.EditingID())

	draft.Amount = decimal.RequireFromString("42.50")
	require.NoError(t, s.UpdateDraft(draft))

	row, err := s.Row("tmp-4")
	require.NoError(t, err)
	assert.True(t, decimal.Zero.Equal(row.Amount), "row is untouched until commit")

	outcome, err := s.CommitEdit()
	require.NoError(t, err)
	assert.True(t, outcome.BecameValid)
	assert.True(t, outcome.Row.IsValid)
	assert.Empty(t, outcome.Row.ValidationErrors)
	assert.True(t, decimal.RequireFromString("42.50").Equal(outcome.Row.Amount))
	assert.True(t, outcome.Row.IsSelected)
	assert.Equal(t, "", s.EditingID())
	assert.Equal(t, 3, s.ValidCount())
}

func TestSession_EditKeepsOtherErrors(t *testing.T) {
	s := newTestSession(t, `Date,Description,Amount,Type
16/10/2025,,0,debit
`)

	draft, err := s.BeginEdit("tmp-1")
	require.NoError(t, err)
	draft.Amount = decimal.RequireFromString("42.50")
	require.NoError(t, s.UpdateDraft(draft))

	outcome, err := s.CommitEdit()
	require.NoError(t, err)
	assert.False(t, outcome.BecameValid)
	assert.False(t, outcome.Row.IsValid)
	assert.Equal(t, []domain.ValidationError{
		{Field: domain.FieldDate, Message: "Date cannot be in the future"},
		{Field: domain.FieldDescription, Message: "Description is required"},
	}, outcome.Row.ValidationErrors)
}

func TestSession_EditCanBreakValidRow(t *testing.T) {
	s := newTestSession(t, mixedStatement)

	draft, err := s.BeginEdit("tmp-1")
	require.NoError(t, err)
	draft.Type = "sideways"
	require.NoError(t, s.UpdateDraft(draft))

	outcome, err := s.CommitEdit()
	require.NoError(t, err)
	assert.False(t, outcome.BecameValid)
	assert.False(t, outcome.Row.IsValid)
	assert.Equal(t, 3, s.InvalidCount())
}

func TestSession_CancelEdit(t *testing.T) {
	s := newTestSession(t, mixedStatement)

	draft, err := s.BeginEdit("tmp-4")
	require.NoError(t, err)
	draft.Description = "Changed"
	require.NoError(t, s.UpdateDraft(draft))

	s.CancelEdit()

	row, err := s.Row("tmp-4")
	require.NoError(t, err)
	assert.Equal(t, "Mystery", row.Description)
	_, err = s.CommitEdit()
	assert.True(t, errors.Is(err, ErrNotEditing))
	assert.True(t, errors.Is(s.UpdateDraft(draft), ErrNotEditing))
}

func TestSession_BeginEditReplacesBuffer(t *testing.T) {
	s := newTestSession(t, mixedStatement)

	_, err := s.BeginEdit("tmp-1")
	require.NoError(t, err)
	_, err = s.BeginEdit("tmp-2")
	require.NoError(t, err)

	assert.Equal(t, "tmp-2", s.EditingID())
}

func TestSession_CategoryEdit(t *testing.T) {
	s := newTestSession(t, mixedStatement)
	groceries := "cat-groceries"

	draft, err := s.BeginEdit("tmp-2")
	require.NoError(t, err)
	draft.CategoryID = &groceries
	require.NoError(t, s.UpdateDraft(draft))
	outcome, err := s.CommitEdit()
	require.NoError(t, err)
	require.NotNil(t, outcome.Row.CategoryID)
	assert.Equal(t, groceries, *outcome.Row.CategoryID)

	blank := " "
	_, err = s.BeginEdit("tmp-2")
	require.NoError(t, err)
	require.NoError(t, s.UpdateDraft(domain.RowDraft{
		Date: outcome.Row.Date, Description: outcome.Row.Description,
		Amount: outcome.Row.Amount, Type: outcome.Row.Type, CategoryID: &blank,
	}))
	outcome, err = s.CommitEdit()
	require.NoError(t, err)
	assert.Nil(t, outcome.Row.CategoryID)
}

func TestSession_CommitInFlightBlocksChanges(t *testing.T) {
	s := newTestSession(t, mixedStatement)

	rows, err := s.beginCommit()
	require.NoError(t, err)
	assert.Len(t, rows, 4)
	assert.Equal(t, "Importing...", s.CommitLabel())
	assert.False(t, s.CanCommit())

	_, err = s.beginCommit()
	assert.True(t, errors.Is(err, ErrCommitInFlight))
	_, err = s.ToggleRow("tmp-1")
	assert.True(t, errors.Is(err, ErrCommitInFlight))
	_, err = s.BeginEdit("tmp-1")
	assert.True(t, errors.Is(err, ErrCommitInFlight))

	s.endCommit()
	_, err = s.ToggleRow("tmp-1")
	assert.NoError(t, err)
}

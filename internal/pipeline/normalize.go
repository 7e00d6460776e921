package pipeline

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dvloznov/budget-tracker/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	slashDate = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	dashDate  = regexp.MustCompile(`^(\d{1,2})-(\d{1,2})-(\d{4})$`)
	isoDateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

	whitespaceRun   = regexp.MustCompile(`\s+`)
	disallowedChars = regexp.MustCompile(`[^\w\s\-.,&()']`)
	nonNumeric      = regexp.MustCompile(`[^\d.\-]`)
)

// NormalizerOptions tunes row normalization.
type NormalizerOptions struct {
	// StrictDates keeps an unrecognized date cell as-is so the validator
	// rejects it, instead of substituting today's date.
	StrictDates bool
}

// Normalizer maps raw statement rows onto ParsedTransaction values.
type Normalizer struct {
	validator *Validator
	now       Clock
	newID     func() string
	opts      NormalizerOptions
}

// NewNormalizer creates a normalizer that validates each row with v.
func NewNormalizer(v *Validator, now Clock, opts NormalizerOptions) *Normalizer {
	if v == nil {
		v = NewValidator()
	}
	if now == nil {
		now = time.Now
	}
	return &Normalizer{
		validator: v,
		now:       now,
		newID:     uuid.NewString,
		opts:      opts,
	}
}

// NormalizeAll normalizes every raw row. A statement without rows is an error.
func (n *Normalizer) NormalizeAll(raws []RawRow) ([]*domain.ParsedTransaction, error) {
	if len(raws) == 0 {
		return nil, ErrNoTransactions
	}
	out := make([]*domain.ParsedTransaction, 0, len(raws))
	for _, raw := range raws {
		out = append(out, n.Normalize(raw))
	}
	return out, nil
}

// Normalize produces exactly one ParsedTransaction for raw. Problems are
// recorded as validation errors on the row; rows are never dropped.
func (n *Normalizer) Normalize(raw RawRow) *domain.ParsedTransaction {
	rawDescription := lookup(raw.Fields, descriptionHeaders)
	rawAmount := lookup(raw.Fields, amountHeaders)
	signed := parseAmount(rawAmount)

	tx := &domain.ParsedTransaction{
		TempID:              n.newID(),
		Date:                n.normalizeDate(lookup(raw.Fields, dateHeaders)),
		Description:         cleanDescription(rawDescription),
		Amount:              signed.Abs(),
		Type:                inferType(raw.Fields, signed, rawDescription),
		OriginalParticulars: rawDescription,
		IsSelected:          true,
		RowNumber:           raw.RowNumber,
	}
	tx.SetValidationErrors(n.validator.Validate(tx.Draft()))

	return tx
}

// normalizeDate converts DD/MM/YYYY and DD-MM-YYYY to ISO form. ISO dates pass
// through unchanged; anything else falls back to today unless StrictDates is set.
func (n *Normalizer) normalizeDate(s string) string {
	s = strings.TrimSpace(s)

	for _, re := range []*regexp.Regexp{slashDate, dashDate} {
		if m := re.FindStringSubmatch(s); m != nil {
			day, _ := strconv.Atoi(m[1])
			month, _ := strconv.Atoi(m[2])
			return fmt.Sprintf("%s-%02d-%02d", m[3], month, day)
		}
	}
	if isoDateRe.MatchString(s) {
		return s
	}
	if n.opts.StrictDates {
		return s
	}
	return n.now().Format(isoDate)
}

func cleanDescription(s string) string {
	s = whitespaceRun.ReplaceAllString(s, " ")
	s = disallowedChars.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > cleanedDescriptionLimit {
		s = string([]rune(s)[:cleanedDescriptionLimit])
	}
	return s
}

// parseAmount keeps digits, dots and minus signs and parses the result.
// Unparseable input yields zero, which the validator rejects.
func parseAmount(s string) decimal.Decimal {
	cleaned := nonNumeric.ReplaceAllString(s, "")
	if cleaned == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func inferType(fields map[string]string, signed decimal.Decimal, description string) domain.TransactionType {
	if explicit := strings.ToLower(lookup(fields, typeHeaders)); explicit != "" {
		switch {
		case explicit == string(domain.TypeCredit), explicit == string(domain.TypeDebit):
			return domain.TransactionType(explicit)
		case strings.Contains(explicit, string(domain.TypeCredit)):
			return domain.TypeCredit
		case strings.Contains(explicit, string(domain.TypeDebit)):
			return domain.TypeDebit
		}
	}

	if lookup(fields, debitHeaders) != "" {
		return domain.TypeDebit
	}
	if lookup(fields, creditHeaders) != "" {
		return domain.TypeCredit
	}

	if signed.IsNegative() {
		return domain.TypeDebit
	}

	desc := strings.ToLower(description)
	if containsKeyword(desc, creditKeywords) {
		return domain.TypeCredit
	}
	if containsKeyword(desc, debitKeywords) {
		return domain.TypeDebit
	}

	return domain.TypeDebit
}

// containsKeyword matches keywords at the start of a word so inflected forms
// ("refunded", "payments") count. Two-letter markers must stand alone, so
// "cr" does not fire on "scrub".
func containsKeyword(text string, keywords []string) bool {
	for _, kw := range keywords {
		if keywordPatterns[kw].MatchString(text) {
			return true
		}
	}
	return false
}

var keywordPatterns = compileKeywords(creditKeywords, debitKeywords)

func compileKeywords(lists ...[]string) map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp)
	for _, list := range lists {
		for _, kw := range list {
			expr := `\b` + regexp.QuoteMeta(kw)
			if len(kw) <= 2 {
				expr += `\b`
			}
			patterns[kw] = regexp.MustCompile(expr)
		}
	}
	return patterns
}

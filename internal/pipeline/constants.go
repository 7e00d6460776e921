package pipeline

import "github.com/shopspring/decimal"

// Limits applied by the import pipeline.
const (
	// MaxCommitRows is the largest batch accepted by a single commit.
	MaxCommitRows = 1000

	// ImportDescriptionLimit bounds descriptions of imported rows after cleanup.
	ImportDescriptionLimit = 200

	// ManualDescriptionLimit bounds descriptions of manually entered transactions.
	ManualDescriptionLimit = 500

	// cleanedDescriptionLimit is where the normalizer truncates descriptions.
	cleanedDescriptionLimit = 500

	// DefaultMaxUploadBytes is the file-size ceiling advertised to clients.
	DefaultMaxUploadBytes = 10 << 20

	// DefaultProgressEvery is how many rows pass between progress callbacks.
	DefaultProgressEvery = 100

	isoDate = "2006-01-02"
)

// maxAmount is the exclusive upper bound for a transaction amount (10^12).
var maxAmount = decimal.New(1, 12)

// Accepted header spellings per logical field, tried in order.
var (
	dateHeaders        = []string{"Date", "date", "Transaction Date", "Posting Date", "DATE"}
	descriptionHeaders = []string{"Description", "description", "Particulars", "particulars", "Details", "details", "DESCRIPTION"}
	amountHeaders      = []string{"Amount", "amount", "AMOUNT", "Debit", "debit", "Credit", "credit"}
	typeHeaders        = []string{"Type", "type", "TYPE"}

	debitHeaders  = []string{"Debit", "debit"}
	creditHeaders = []string{"Credit", "credit"}
)

// Description keywords used to infer a transaction type when nothing else does.
var (
	creditKeywords = []string{"salary", "deposit", "transfer in", "refund", "cr", "income"}
	debitKeywords  = []string{"withdrawal", "payment", "purchase", "transfer out", "dr", "expense"}
)

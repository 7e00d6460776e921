package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dvloznov/budget-tracker/internal/domain"
	"github.com/dvloznov/budget-tracker/internal/pipeline"
	"gopkg.in/yaml.v3"
)

type rowReport struct {
	Row         int      `json:"row" yaml:"row"`
	Date        string   `json:"date" yaml:"date"`
	Description string   `json:"description" yaml:"description"`
	Amount      string   `json:"amount" yaml:"amount"`
	Type        string   `json:"type" yaml:"type"`
	Valid       bool     `json:"valid" yaml:"valid"`
	Errors      []string `json:"errors,omitempty" yaml:"errors,omitempty"`
}

type previewReport struct {
	ImportID string      `json:"import_id" yaml:"import_id"`
	Filename string      `json:"filename" yaml:"filename"`
	Total    int         `json:"total" yaml:"total"`
	Valid    int         `json:"valid" yaml:"valid"`
	Invalid  int         `json:"invalid" yaml:"invalid"`
	NetTotal string      `json:"net_total" yaml:"net_total"`
	Rows     []rowReport `json:"rows" yaml:"rows"`
}

func newPreviewReport(view pipeline.SessionView) previewReport {
	report := previewReport{
		ImportID: view.ID,
		Filename: view.Filename,
		Total:    view.TotalCount,
		Valid:    view.ValidCount,
		Invalid:  view.InvalidCount,
		NetTotal: view.NetTotal.StringFixed(2),
		Rows:     make([]rowReport, 0, len(view.Rows)),
	}
	for _, row := range view.Rows {
		r := rowReport{
			Row:         row.RowNumber,
			Date:        row.Date,
			Description: row.Description,
			Amount:      row.Amount.StringFixed(2),
			Type:        string(row.Type),
			Valid:       row.IsValid,
		}
		for _, e := range row.ValidationErrors {
			r.Errors = append(r.Errors, fmt.Sprintf("%s: %s", e.Field, e.Message))
		}
		report.Rows = append(report.Rows, r)
	}
	return report
}

func writeReport(w io.Writer, format string, report previewReport) error {
	switch format {
	case "json":
		return writeJSON(w, report)
	case "yaml":
		return writeYAML(w, report)
	case "table", "":
	default:
		return fmt.Errorf("unknown output format %q", format)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ROW\tDATE\tTYPE\tAMOUNT\tDESCRIPTION\tERRORS")
	for _, r := range report.Rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", r.Row, r.Date, r.Type, r.Amount, r.Description, strings.Join(r.Errors, "; "))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d row(s): %d valid, %d invalid. Net total %s\n", report.Total, report.Valid, report.Invalid, report.NetTotal)
	return err
}

func writeCategories(w io.Writer, format string, categories []domain.Category) error {
	switch format {
	case "json":
		return writeJSON(w, categories)
	case "yaml":
		type category struct {
			ID   string `yaml:"id"`
			Name string `yaml:"name"`
		}
		out := make([]category, len(categories))
		for i, c := range categories {
			out[i] = category{ID: c.ID, Name: c.Name}
		}
		return writeYAML(w, out)
	case "table", "":
	default:
		return fmt.Errorf("unknown output format %q", format)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME")
	for _, c := range categories {
		fmt.Fprintf(tw, "%s\t%s\n", c.ID, c.Name)
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeYAML(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

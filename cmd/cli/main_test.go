package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const sampleStatement = `Date,Particulars,Debit,Credit
01/03/2024,SALARY MARCH,,3000.00
05/03/2024,TESCO STORES 2231,45.60,
09/03/2024,,12.00,
`

func writeStatement(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "march.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleStatement), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("STORE_BACKEND", "memory")
	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestPreview_JSON(t *testing.T) {
	out, err := run(t, "preview", writeStatement(t), "--output", "json")
	require.NoError(t, err)

	var report previewReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "march.csv", report.Filename)
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.Valid)
	assert.Equal(t, 1, report.Invalid)
	assert.Equal(t, "2942.40", report.NetTotal)

	require.Len(t, report.Rows, 3)
	assert.Equal(t, "credit", report.Rows[0].Type)
	assert.Equal(t, "2024-03-05", report.Rows[1].Date)
	assert.Equal(t, 4, report.Rows[2].Row)
	assert.Contains(t, report.Rows[2].Errors, "description: Description is required")
}

func TestPreview_YAMLAndTable(t *testing.T) {
	path := writeStatement(t)

	out, err := run(t, "preview", path, "-o", "yaml")
	require.NoError(t, err)
	var report previewReport
	require.NoError(t, yaml.Unmarshal([]byte(out), &report))
	assert.Equal(t, 3, report.Total)

	out, err = run(t, "preview", path)
	require.NoError(t, err)
	assert.Contains(t, out, "TESCO STORES 2231")
	assert.Contains(t, out, "3 row(s): 2 valid, 1 invalid.")

	_, err = run(t, "preview", path, "-o", "xml")
	assert.Error(t, err)
}

func TestPreview_MissingFile(t *testing.T) {
	_, err := run(t, "preview", filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}

func TestImport(t *testing.T) {
	path := writeStatement(t)

	out, err := run(t, "import", path, "--user", "u1", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "Would import 2 transaction(s), skipping 1 invalid row(s).")

	out, err = run(t, "import", path, "--user", "u1")
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2 transaction(s), skipped 1 invalid row(s).")

	_, err = run(t, "import", path)
	assert.Error(t, err, "--user is required")
}

func TestCategories(t *testing.T) {
	out, err := run(t, "categories", "--user", "u1", "-o", "json")
	require.NoError(t, err)

	var categories []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &categories))
	assert.NotEmpty(t, categories)
}

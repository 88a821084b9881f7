package cmd

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"findoc/pkg/models"
)

func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestFindDocuments(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b.PDF"), "%PDF")
	writeFile(t, filepath.Join(root, "a.csv"), "x")
	writeFile(t, filepath.Join(root, "notes.txt"), "x")
	writeFile(t, filepath.Join(root, "nested", "scan.jpeg"), "x")
	writeFile(t, filepath.Join(root, "nested", "book.xlsx"), "x")

	files, err := findDocuments(root)
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(root, "a.csv"),
		filepath.Join(root, "b.PDF"),
		filepath.Join(root, "nested", "book.xlsx"),
		filepath.Join(root, "nested", "scan.jpeg"),
	}, files)
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	rows := [][]string{
		models.FailedExportRow("broken.pdf", os.ErrPermission),
	}

	require.NoError(t, writeCSV(path, rows))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, models.ExportHeader(), records[0])
	assert.Equal(t, "broken.pdf", records[1][0])
	assert.Equal(t, "Internal error: permission denied", records[1][6])
}

func TestReadInputFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.pdf")
	writeFile(t, path, "0123456789")

	data, err := readInputFile(path, 100)
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(data))

	_, err = readInputFile(path, 5)
	assert.ErrorContains(t, err, "file too large")

	_, err = readInputFile(filepath.Join(dir, "missing.pdf"), 100)
	assert.ErrorContains(t, err, "file not found")

	_, err = readInputFile(dir, 100)
	assert.ErrorContains(t, err, "not a regular file")
}

func TestSortedLabels(t *testing.T) {
	assert.Equal(t, []string{"Invoice", "Receipt", "Tabular Data"},
		sortedLabels(map[string]int{"Tabular Data": 1, "Receipt": 2, "Invoice": 3}))
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"analyze", "extract", "batch", "serve"} {
		assert.True(t, names[want], want)
	}
}

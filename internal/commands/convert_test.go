package commands_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const plainCSV = "Date,Description,Amount\n01/05/2024,Grocery,(23.10)\n01/06/2024,Refund,$4.00\n"

func TestConvert_PlainCSV(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "jan.csv")
	require.NoError(t, os.WriteFile(in, []byte(plainCSV), 0o644))

	out, err := runStmtqbo(t, dir, "convert", in)
	require.NoError(t, err, out)
	assert.Contains(t, out, "(2 transactions)")

	qbo, err := os.ReadFile(filepath.Join(dir, "jan.qbo"))
	require.NoError(t, err)
	assert.Contains(t, string(qbo), "<TRNAMT>-23.10</TRNAMT>")
	assert.Contains(t, string(qbo), "<BALAMT>-19.10</BALAMT>")
}

func TestConvert_TablesDump(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "doc.tables.csv")
	dump := "\ufeff#TABLE 1 (Page 1)\r\nDate,Desc,Debit,Credit\r\n1/2/2024,Coffee,5.00,\r\n\r\n" +
		"#TABLE 2 (Page 2)\r\nDate,Desc,Debit,Credit\r\n1/3/2024,Payroll,,1000.00\r\n\r\n"
	require.NoError(t, os.WriteFile(in, []byte(dump), 0o644))

	outPath := filepath.Join(dir, "custom.qbo")
	out, err := runStmtqbo(t, dir, "convert", in, "-o", outPath, "--account-type", "credit-card")
	require.NoError(t, err, out)

	qbo, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(qbo), "<CCSTMTRS>")
	assert.Contains(t, string(qbo), "<TRNAMT>5.00</TRNAMT>")
	assert.Contains(t, string(qbo), "<TRNAMT>-1000.00</TRNAMT>")
}

func TestConvert_MissingInput(t *testing.T) {
	dir := t.TempDir()
	_, err := runStmtqbo(t, dir, "convert", filepath.Join(dir, "nope.csv"))
	assert.Error(t, err)
}

package tabular

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"

	"github.com/mobilepoint/apexorder/internal/domain/models"
)

func TestReadCSVSkipsBOMAndSniffsDelimiter(t *testing.T) {
	input := "\xEF\xBB\xBFcod;denumire;pret\nGH82-1A/2A;\"Ecran; negru\";10,5\n"

	rows, err := ReadCSV(strings.NewReader(input), nil)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"cod", "denumire", "pret"},
		{"GH82-1A/2A", "Ecran; negru", "10,5"},
	}, rows)
}

func TestReadCSVRaggedRows(t *testing.T) {
	rows, err := ReadCSV(strings.NewReader("a,b,c\n1\n1,2,3,4\n"), nil)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
	assert.Equal(t, []string{"1"}, rows[1])
}

func TestReadCSVKeepsBlankLines(t *testing.T) {
	input := "Raport miscari\n\n\r\ncod;iesiri\n\"A\nB\";3\n\nC;4\n"

	rows, err := ReadCSV(strings.NewReader(input), nil)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Raport miscari"},
		{},
		{},
		{"cod", "iesiri"},
		{"A\nB", "3"},
		{},
		{"C", "4"},
	}, rows)
}

func TestReadCSVWindows1250(t *testing.T) {
	encoded, err := charmap.Windows1250.NewEncoder().String("Cod,Ieşiri\nA-1,3\n")
	require.NoError(t, err)

	enc, err := LookupEncoding("windows-1250")
	require.NoError(t, err)
	rows, err := ReadCSV(strings.NewReader(encoded), enc)
	require.NoError(t, err)
	assert.Equal(t, "Ieşiri", rows[0][1])
}

func TestLookupEncoding(t *testing.T) {
	for _, name := range []string{"", "UTF-8", "cp1250", "latin2"} {
		_, err := LookupEncoding(name)
		assert.NoError(t, err, name)
	}
	_, err := LookupEncoding("ebcdic")
	assert.Error(t, err)
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name, contentType string
		want              Format
	}{
		{"apex.csv", "", FormatCSV},
		{"SMARTBILL.XLSX", "", FormatXLSX},
		{"export", "text/csv; charset=utf-8", FormatCSV},
		{"download", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", FormatXLSX},
	}
	for _, tt := range tests {
		got, err := DetectFormat(tt.name, tt.contentType)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}

	_, err := DetectFormat("old.xls", "")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	_, err = DetectFormat("report.pdf", "application/pdf")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Raport"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]interface{}{"Cod", "Iesiri", "Stoc final"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A4", &[]interface{}{"A-1", 8, 1.5}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	table, err := Read("smartbill.xlsx", "", bytes.NewReader(buf.Bytes()), Options{})
	require.NoError(t, err)
	assert.Equal(t, "smartbill.xlsx", table.Name)
	require.Len(t, table.Rows, 4)
	assert.Equal(t, "Raport", table.Rows[0][0])
	assert.True(t, models.IsBlankRow(table.Rows[1]))
	assert.Equal(t, []string{"Cod", "Iesiri", "Stoc final"}, table.Rows[2])
	require.Len(t, table.Rows[3], 3)
	assert.Equal(t, "8", table.Rows[3][1])
	assert.Equal(t, "1.5", table.Rows[3][2])
}

func TestReadRejectsGarbageWorkbook(t *testing.T) {
	_, err := Read("broken.xlsx", "", strings.NewReader("not a zip"), Options{})
	assert.Error(t, err)
}

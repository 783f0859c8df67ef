package exporter

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/PauloMoekotte/Herkomst-ROC/internal/dataset"
)

func sampleView(t *testing.T) dataset.View {
	t.Helper()
	f := dataset.MustNew("Instelling", "Jaar", "Aantal")
	require.NoError(t, f.Append(dataset.Text("ROC van Twente"), dataset.Number(2023), dataset.Number(120)))
	require.NoError(t, f.Append(dataset.Text("Zone.college; Enschede"), dataset.Number(2023), dataset.Null()))
	require.NoError(t, f.Append(dataset.Text("Graafschap \"Oost\""), dataset.Number(2024), dataset.Number(12.5)))
	return f.All()
}

func TestExporter_WriteCSV(t *testing.T) {
	tests := []struct {
		name      string
		opts      Options
		wantBOM   bool
		delimiter rune
	}{
		{"defaults", Options{}, false, ','},
		{"with BOM", Options{BOMPrefix: true}, true, ','},
		{"semicolon", Options{Delimiter: ';'}, false, ';'},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, New(tt.opts).WriteCSV(&buf, sampleView(t)))

			data := buf.Bytes()
			assert.Equal(t, tt.wantBOM, bytes.HasPrefix(data, utf8BOM))
			data = bytes.TrimPrefix(data, utf8BOM)

			r := csv.NewReader(bytes.NewReader(data))
			r.Comma = tt.delimiter
			records, err := r.ReadAll()
			require.NoError(t, err)
			require.Len(t, records, 4)
			assert.Equal(t, []string{"Instelling", "Jaar", "Aantal"}, records[0])
			assert.Equal(t, []string{"ROC van Twente", "2023", "120"}, records[1])
			assert.Equal(t, []string{"Zone.college; Enschede", "2023", ""}, records[2])
			assert.Equal(t, []string{"Graafschap \"Oost\"", "2024", "12.5"}, records[3])
		})
	}
}

func TestExporter_WriteCSVEmptyView(t *testing.T) {
	f := dataset.MustNew("a", "b")
	var buf bytes.Buffer
	require.NoError(t, New(Options{}).WriteCSV(&buf, f.All()))
	assert.Equal(t, "a,b\n", buf.String())
}

func TestExporter_WriteCSVFilteredView(t *testing.T) {
	v := sampleView(t).Where(func(i int) bool {
		return i != 0
	})
	var buf bytes.Buffer
	require.NoError(t, New(Options{}).WriteCSV(&buf, v))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "Zone.college; Enschede", records[1][0])
}

func TestExporter_WriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(Options{SheetName: "Selectie"}).WriteXLSX(&buf, sampleView(t)))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Selectie")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Instelling", "Jaar", "Aantal"}, rows[0])
	assert.Equal(t, "ROC van Twente", rows[1][0])
	assert.Equal(t, "120", rows[1][2])
	assert.Equal(t, "12.5", rows[3][2])

	typ, err := f.GetCellType("Selectie", "C2")
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeSharedString, typ)
}

func TestExporter_WriteFile(t *testing.T) {
	dir := t.TempDir()
	exp := New(Options{})

	csvPath := filepath.Join(dir, "nested", "selectie.csv")
	require.NoError(t, exp.WriteFile(csvPath, sampleView(t)))
	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "ROC van Twente,2023,120")

	xlsxPath := filepath.Join(dir, "selectie.xlsx")
	require.NoError(t, exp.WriteFile(xlsxPath, sampleView(t)))
	info, err := os.Stat(xlsxPath)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	err = exp.WriteFile(filepath.Join(dir, "selectie.json"), sampleView(t))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"csv", CSV, false},
		{".XLSX", XLSX, false},
		{"xls", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "export.xlsx", XLSX.FileName("export.csv"))
	assert.Equal(t, "gefilterde_mbo_data.csv", CSV.FileName("gefilterde_mbo_data.csv"))
	assert.Contains(t, CSV.ContentType(), "text/csv")
	assert.Contains(t, XLSX.ContentType(), "spreadsheetml")
}

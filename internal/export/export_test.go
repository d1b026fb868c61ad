package export

import (
	"bytes"
	"encoding/csv"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/chajda/internal/models"
)

func sampleRows() []models.ResultRow {
	return []models.ResultRow{
		{
			Subject:   "▼a한국전쟁▼0KSH1▲",
			PrefLabel: "한국전쟁",
			Matched:   "한국전쟁",
			KDCLike:   "911.07",
			Broader:   []string{"▼a전쟁▼0KSH2▲"},
			Synonyms:  []string{"Korean War", "6.25"},
			ConceptID: "nlk:KSH1",
			LinkURL:   "https://lod.nl.go.kr/page/concept/KSH1",
		},
		{
			Subject:   "▼a전쟁▼0KSH2▲",
			PrefLabel: "전쟁",
			Matched:   "전쟁",
			ConceptID: "nlk:KSH2",
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleRows()); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want header + 2 rows", len(records))
	}
	if records[0][0] != "Subject" || len(records[0]) != len(models.Columns) {
		t.Errorf("header = %v", records[0])
	}
	if records[1][0] != "▼a한국전쟁▼0KSH1▲" {
		t.Errorf("first cell = %q", records[1][0])
	}
	if records[1][9] != "Korean War; 6.25" {
		t.Errorf("synonyms cell = %q", records[1][9])
	}
}

func TestWriteCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, nil); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("got %d records, want header only", len(records))
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, sampleRows()); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header + 2", len(rows))
	}
	if rows[0][0] != "Subject" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[2][1] != "전쟁" {
		t.Errorf("second row pref label = %q", rows[2][1])
	}
}

func TestWriteXLSXFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.xlsx")
	if err := WriteXLSXFile(path, sampleRows()); err != nil {
		t.Fatalf("WriteXLSXFile: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(sheetName)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Errorf("got %d rows, want 3", len(rows))
	}
}

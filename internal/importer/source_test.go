package importer

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestReadCSV(t *testing.T) {
	doc := "\ufeffnumber,answer, question \n1,A,\"First, with comma\"\n\n2,,Second\n"
	rows, err := ReadCSV(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0]["number"] != "1" || rows[0]["question"] != "First, with comma" {
		t.Fatalf("unexpected first row %v", rows[0])
	}
	if _, ok := rows[1]["answer"]; ok {
		t.Fatalf("empty cells should be omitted: %v", rows[1])
	}
}

func TestReadCSVEmpty(t *testing.T) {
	if _, err := ReadCSV(strings.NewReader("")); !errors.Is(err, ErrEmptySource) {
		t.Fatalf("expected ErrEmptySource, got %v", err)
	}
}

func TestReadXLSXUsesFirstSheet(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range [][]interface{}{
		{"题号", "答案", "题目"},
		{1, "B", "Who?"},
		{2, "A", "Where?"},
	} {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	rows, err := Read(&buf, FormatXLSX)
	if err != nil {
		t.Fatalf("read xlsx: %v", err)
	}
	if len(rows) != 2 || rows[1]["答案"] != "A" || rows[0]["题号"] != "1" {
		t.Fatalf("unexpected rows %v", rows)
	}
}

func TestFormatFromName(t *testing.T) {
	if f, err := FormatFromName("3-Fables.XLSX"); err != nil || f != FormatXLSX {
		t.Fatalf("expected xlsx, got %v %v", f, err)
	}
	if _, err := FormatFromName("3-Fables.pdf"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

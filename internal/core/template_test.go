package core

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestParseTemplateFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    TemplateFormat
		wantErr bool
	}{
		{"", TemplateCSV, false},
		{"csv", TemplateCSV, false},
		{"xlsx", TemplateXLSX, false},
		{"pdf", "", true},
	}

	for _, tt := range tests {
		got, err := ParseTemplateFormat(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseTemplateFormat(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseTemplateFormat(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestBuildTemplate_CSV(t *testing.T) {
	tpl, err := BuildTemplate(testSchema(), TemplateCSV)
	if err != nil {
		t.Fatalf("BuildTemplate() error = %v", err)
	}
	if tpl.Filename != "contracts_template.csv" {
		t.Errorf("Filename = %q", tpl.Filename)
	}

	// The template parses back into exactly the schema labels with no rows.
	table, err := NewParser(0).Parse(UploadedFile{OriginalName: tpl.Filename, MimeKind: KindCSV}, tpl.Data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !reflect.DeepEqual(table.Columns, testSchema().Labels()) {
		t.Errorf("Columns = %v, want %v", table.Columns, testSchema().Labels())
	}
	if len(table.Rows) != 0 {
		t.Errorf("len(Rows) = %d, want 0", len(table.Rows))
	}
}

func TestBuildTemplate_XLSX(t *testing.T) {
	tpl, err := BuildTemplate(testSchema(), TemplateXLSX)
	if err != nil {
		t.Fatalf("BuildTemplate() error = %v", err)
	}
	if tpl.ContentType != TemplateXLSX.ContentType() {
		t.Errorf("ContentType = %q", tpl.ContentType)
	}

	f, err := excelize.OpenReader(bytes.NewReader(tpl.Data))
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 1 || !reflect.DeepEqual(rows[0], testSchema().Labels()) {
		t.Errorf("rows = %v, want header only", rows)
	}
}

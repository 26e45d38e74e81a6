package core

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// TemplateFormat is the file format of a downloadable import template.
type TemplateFormat string

const (
	TemplateCSV  TemplateFormat = "csv"
	TemplateXLSX TemplateFormat = "xlsx"
)

// ParseTemplateFormat maps a query value to a format; empty means CSV.
func ParseTemplateFormat(s string) (TemplateFormat, error) {
	switch TemplateFormat(s) {
	case "", TemplateCSV:
		return TemplateCSV, nil
	case TemplateXLSX:
		return TemplateXLSX, nil
	}
	return "", fmt.Errorf("unsupported template format %q", s)
}

// ContentType returns the MIME type for the format.
func (f TemplateFormat) ContentType() string {
	if f == TemplateXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Template is a rendered template file.
type Template struct {
	Filename    string
	ContentType string
	Data        []byte
}

// BuildTemplate renders a file whose only row is the schema's field labels.
func BuildTemplate(schema EntitySchema, format TemplateFormat) (*Template, error) {
	var (
		data []byte
		err  error
	)
	switch format {
	case TemplateXLSX:
		data, err = templateXLSX(schema)
	default:
		format = TemplateCSV
		data, err = templateCSV(schema)
	}
	if err != nil {
		return nil, fmt.Errorf("build %s template for %s: %w", format, schema.EntityType, err)
	}

	return &Template{
		Filename:    fmt.Sprintf("%s_template.%s", schema.EntityType, format),
		ContentType: format.ContentType(),
		Data:        data,
	}, nil
}

func templateCSV(schema EntitySchema) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(schema.Labels()); err != nil {
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func templateXLSX(schema EntitySchema) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	labels := schema.Labels()
	header := make([]any, len(labels))
	for i, l := range labels {
		header[i] = l
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

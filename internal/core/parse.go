package core

// parse.go decodes staged files into a ParsedTable.
//
// Delimited text is decoded through a BOM-aware UTF-8 reader (UTF-16 files
// with a BOM are transcoded, invalid UTF-8 becomes U+FFFD) and the delimiter
// is sniffed from the header line. Spreadsheets are read from their first
// sheet. All formats converge on a list of raw records which buildTable turns
// into columns, rows and warnings.

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// DefaultSampleRows is how many rows are inspected for column type inference.
const DefaultSampleRows = 20

// sniffBytes bounds how much of a delimited file is inspected to pick a delimiter.
const sniffBytes = 64 * 1024

// candidateDelimiters in order of preference when counts tie.
var candidateDelimiters = []rune{',', ';', '\t', '|'}

// Parser turns staged bytes into a ParsedTable.
type Parser struct {
	// SampleRows is the number of leading rows used for type inference.
	SampleRows int
}

// NewParser returns a parser with the given inference sample size.
func NewParser(sampleRows int) *Parser {
	if sampleRows <= 0 {
		sampleRows = DefaultSampleRows
	}
	return &Parser{SampleRows: sampleRows}
}

// rawRecord is one physical record with its 1-based source line.
type rawRecord struct {
	line  int
	cells []string
}

// Parse decodes data according to the file's kind.
// Any decoding failure is returned as a *FileError of kind unreadable.
func (p *Parser) Parse(file UploadedFile, data []byte) (*ParsedTable, error) {
	var (
		records []rawRecord
		err     error
	)

	switch file.MimeKind {
	case KindCSV:
		records, err = readDelimited(bytes.NewReader(data))
	case KindXLSX:
		records, err = readXLSX(data)
	case KindXLS:
		records, err = readXLS(data)
	default:
		return nil, &FileError{Kind: FileUnsupportedType, Name: file.OriginalName}
	}
	if err != nil {
		return nil, &FileError{Kind: FileUnreadable, Name: file.OriginalName, Err: err}
	}

	table, err := p.buildTable(records)
	if err != nil {
		return nil, &FileError{Kind: FileUnreadable, Name: file.OriginalName, Err: err}
	}
	return table, nil
}

// readDelimited reads CSV-like text with a sniffed delimiter.
func readDelimited(r io.Reader) ([]rawRecord, error) {
	decoded := transform.NewReader(r, transform.Chain(
		unicode.BOMOverride(unicode.UTF8.NewDecoder()),
		runes.ReplaceIllFormed(),
	))
	br := bufio.NewReaderSize(decoded, sniffBytes)

	head, err := br.Peek(sniffBytes)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("read header: %w", err)
	}

	reader := csv.NewReader(br)
	reader.Comma = sniffDelimiter(head)
	reader.FieldsPerRecord = -1 // rows may be ragged; buildTable reports it
	reader.LazyQuotes = true

	var records []rawRecord
	for {
		cells, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid csv: %w", err)
		}
		line, _ := reader.FieldPos(0)
		records = append(records, rawRecord{line: line, cells: cells})
	}
	return records, nil
}

// sniffDelimiter picks the candidate that occurs most often, outside quotes,
// on the first non-blank line.
func sniffDelimiter(head []byte) rune {
	var line string
	for _, l := range strings.Split(string(head), "\n") {
		if strings.TrimSpace(l) != "" {
			line = l
			break
		}
	}

	counts := make(map[rune]int, len(candidateDelimiters))
	inQuotes := false
	for _, r := range line {
		if r == '"' {
			inQuotes = !inQuotes
			continue
		}
		if !inQuotes {
			counts[r]++
		}
	}

	best := ','
	bestCount := 0
	for _, d := range candidateDelimiters {
		if counts[d] > bestCount {
			best, bestCount = d, counts[d]
		}
	}
	return best
}

// readXLSX reads the first sheet of an Office Open XML workbook.
func readXLSX(data []byte) ([]rawRecord, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}

	records := make([]rawRecord, len(rows))
	for i, cells := range rows {
		records[i] = rawRecord{line: i + 1, cells: cells}
	}
	return records, nil
}

// readXLS reads the first sheet of a legacy BIFF workbook.
// The decoder panics on some malformed inputs; those become errors.
func readXLS(data []byte) (records []rawRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			records, err = nil, fmt.Errorf("corrupt workbook: %v", r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	if wb == nil {
		return nil, errors.New("no workbook stream in file")
	}

	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, errors.New("workbook has no sheets")
	}

	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := xlsRow(sheet, i)
		if row == nil {
			records = append(records, rawRecord{line: i + 1})
			continue
		}
		last := row.LastCol()
		cells := make([]string, 0, last)
		for c := 0; c < last; c++ {
			cells = append(cells, row.Col(c))
		}
		records = append(records, rawRecord{line: i + 1, cells: cells})
	}
	return records, nil
}

// xlsRow returns row i, or nil when the sheet has no record for it.
// WorkSheet.Row dereferences missing rows, so the panic is absorbed here.
func xlsRow(sheet *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return sheet.Row(i)
}

// buildTable derives columns from the first non-blank record and keys every
// following record by those columns.
func (p *Parser) buildTable(records []rawRecord) (*ParsedTable, error) {
	headerAt := -1
	for i, rec := range records {
		if !isBlankRecord(rec.cells) {
			headerAt = i
			break
		}
	}
	if headerAt < 0 {
		return nil, errors.New("empty file: no header row found")
	}

	columns := uniqueColumns(records[headerAt].cells)
	table := &ParsedTable{Columns: columns}

	for _, rec := range records[headerAt+1:] {
		if isBlankRecord(rec.cells) {
			table.Warnings = append(table.Warnings, ParseWarning{
				Line:    rec.line,
				Message: "blank row skipped",
			})
			continue
		}

		if extra := rec.cells[min(len(rec.cells), len(columns)):]; len(extra) > 0 && !isBlankRecord(extra) {
			table.Warnings = append(table.Warnings, ParseWarning{
				Line: rec.line,
				Message: fmt.Sprintf("row has %d cells but the header has %d columns; extra cells ignored",
					len(rec.cells), len(columns)),
			})
		}

		cells := make(map[string]*string, len(columns))
		for i, col := range columns {
			if i >= len(rec.cells) || strings.TrimSpace(rec.cells[i]) == "" {
				cells[col] = nil
				continue
			}
			v := rec.cells[i]
			cells[col] = &v
		}
		table.Rows = append(table.Rows, Row{Line: rec.line, Cells: cells})
	}

	table.ColumnTypes = inferColumnTypes(table.Columns, table.Rows, p.SampleRows)
	return table, nil
}

// uniqueColumns trims header names, names empty headers "Column N" and
// disambiguates duplicates with _2, _3 suffixes.
func uniqueColumns(header []string) []string {
	// Trailing empty header cells are spreadsheet padding, not columns.
	end := len(header)
	for end > 0 && strings.TrimSpace(header[end-1]) == "" {
		end--
	}

	seen := make(map[string]bool, end)
	columns := make([]string, 0, end)
	for i, h := range header[:end] {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("Column %d", i+1)
		}
		candidate := name
		for n := 2; seen[candidate]; n++ {
			candidate = fmt.Sprintf("%s_%d", name, n)
		}
		seen[candidate] = true
		columns = append(columns, candidate)
	}
	return columns
}

// isBlankRecord reports whether every cell is empty or whitespace.
func isBlankRecord(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// inferColumnTypes labels each column by plurality vote over the non-empty
// cells of the first sample rows. Ties and all-empty columns are text.
func inferColumnTypes(columns []string, rows []Row, sample int) map[string]ColumnType {
	if sample > len(rows) {
		sample = len(rows)
	}

	types := make(map[string]ColumnType, len(columns))
	for _, col := range columns {
		votes := map[ColumnType]int{}
		for _, row := range rows[:sample] {
			v, ok := row.Value(col)
			if !ok {
				continue
			}
			votes[classifyCell(v)]++
		}
		types[col] = winningType(votes)
	}
	return types
}

// classifyCell returns the most specific type a single cell satisfies.
func classifyCell(s string) ColumnType {
	s = CleanCell(s)
	if _, err := ParseNumber(s); err == nil {
		return ColumnNumber
	}
	if looksLikeDate(s) {
		return ColumnDate
	}
	return ColumnText
}

func winningType(votes map[ColumnType]int) ColumnType {
	best, bestVotes, tied := ColumnText, 0, false
	for _, t := range []ColumnType{ColumnNumber, ColumnDate, ColumnText} {
		switch {
		case votes[t] > bestVotes:
			best, bestVotes, tied = t, votes[t], false
		case votes[t] == bestVotes && bestVotes > 0:
			tied = true
		}
	}
	if tied || bestVotes == 0 {
		return ColumnText
	}
	return best
}

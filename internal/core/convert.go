package core

// convert.go provides coercion functions from raw cell text to typed values.
//
// These functions handle the messy reality of user-provided spreadsheet data:
//   - Day-first and month-first dates, ISO dates, Excel serial dates
//   - Currency symbols, thousands separators and decimal commas in numbers
//   - Accounting negatives written as (123.45)
//   - Excel formula prefixes (="value") and stray quotes

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateOrder resolves ambiguous numeric dates such as 03/04/2024.
type DateOrder string

const (
	DayFirst   DateOrder = "dmy"
	MonthFirst DateOrder = "mdy"
)

// ParseDateOrder returns the DateOrder for s, defaulting to DayFirst.
func ParseDateOrder(s string) DateOrder {
	if strings.EqualFold(s, string(MonthFirst)) {
		return MonthFirst
	}
	return DayFirst
}

var (
	errNotNumber  = errors.New("invalid number")
	errNotInteger = errors.New("invalid integer")
	errNotDate    = errors.New("invalid date")
)

// numericRegex validates that a string is a valid numeric format after cleanup.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would result in dates more than this many years in the future
// are assumed to be in the previous century.
var TwoDigitYearPivot = 20

// Excel serial dates accepted in date fields (1954-10-03 through 2099-12-31).
const (
	minExcelSerial = 20000
	maxExcelSerial = 73050
)

var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// Date layouts split by year format and field order.
var (
	isoLayouts = []string{
		"2006-01-02", "2006/01/02", "2006.01.02",
		"2006-01-02T15:04:05Z07:00", "2006-01-02T15:04:05", "2006-01-02 15:04:05",
		"20060102",
	}
	textLayouts = []string{
		"2 Jan 2006", "02 Jan 2006", "2 January 2006", "02 January 2006",
		"Jan 2, 2006", "January 2, 2006", "2-Jan-2006", "02-Jan-2006", "2-Jan-06",
	}
	dayFirstLayouts = []string{
		"02/01/2006", "2/1/2006", "02-01-2006", "2-1-2006", "02.01.2006", "2.1.2006",
	}
	dayFirstTwoDigitLayouts = []string{
		"02/01/06", "2/1/06", "02-01-06", "2-1-06", "02.01.06", "2.1.06",
	}
	monthFirstLayouts = []string{
		"01/02/2006", "1/2/2006", "01-02-2006", "1-2-2006", "01.02.2006", "1.2.2006",
	}
	monthFirstTwoDigitLayouts = []string{
		"01/02/06", "1/2/06", "01-02-06", "1-2-06", "01.02.06", "1.2.06",
	}
)

// ParseNumber converts a cell to float64.
// Handles currency symbols, thousands separators, decimal commas and
// accounting format (parentheses for negative).
func ParseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errNotNumber
	}

	// Detect negative accounting format "(123.45)"
	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	// Remove currency symbols and grouping whitespace
	s = strings.NewReplacer(
		"$", "", "€", "", "£", "", "¥", "",
		" ", "", "\u00a0", "", "\u202f", "", "'", "",
	).Replace(s)
	s = strings.TrimSuffix(strings.TrimSuffix(s, "EUR"), "USD")

	s = normalizeSeparators(s)

	if isNegative {
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return 0, errNotNumber
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, errNotNumber
	}
	return f, nil
}

// normalizeSeparators rewrites grouping and decimal separators so that the
// result uses '.' as the only decimal point and no grouping.
func normalizeSeparators(s string) string {
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		// The rightmost separator is the decimal point.
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")

	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			if !isGrouped(s, ",") {
				return s
			}
			return strings.ReplaceAll(s, ",", "")
		}
		// 1,234 reads as a thousands group; 12,5 and 1,2345 as decimals.
		intPart := strings.TrimLeft(s[:lastComma], "+-")
		frac := s[lastComma+1:]
		if len(frac) == 3 && len(intPart) >= 1 && len(intPart) <= 3 && intPart != "0" {
			return strings.Replace(s, ",", "", 1)
		}
		return strings.Replace(s, ",", ".", 1)

	case lastDot >= 0 && strings.Count(s, ".") > 1:
		if !isGrouped(s, ".") {
			return s
		}
		return strings.ReplaceAll(s, ".", "")
	}
	return s
}

// isGrouped reports whether every group after the first has exactly three
// digits, so 1.234.567 is a number while 15.03.2024 is not.
func isGrouped(s, sep string) bool {
	groups := strings.Split(s, sep)
	for _, g := range groups[1:] {
		if len(g) != 3 {
			return false
		}
	}
	return true
}

// ParseInteger converts a cell to int64. The value must be whole.
func ParseInteger(s string) (int64, error) {
	if n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
		return n, nil
	}

	// float64 cannot hold MaxInt64; 2^63 and above overflow
	f, err := ParseNumber(s)
	if err != nil {
		return 0, errNotInteger
	}
	if f != math.Trunc(f) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, errNotInteger
	}
	return int64(f), nil
}

// ParseDate converts a cell to a date (UTC midnight for date-only inputs).
// Unambiguous layouts are tried first, then numeric layouts in the given
// order, then Excel serial numbers.
func ParseDate(s string, order DateOrder) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errNotDate
	}

	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	for _, layout := range textLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return pivotTwoDigitYear(t, layout), nil
		}
	}

	fourDigit, twoDigit := dayFirstLayouts, dayFirstTwoDigitLayouts
	if order == MonthFirst {
		fourDigit, twoDigit = monthFirstLayouts, monthFirstTwoDigitLayouts
	}
	for _, layout := range fourDigit {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	for _, layout := range twoDigit {
		if t, err := time.Parse(layout, s); err == nil {
			return pivotTwoDigitYear(t, layout), nil
		}
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if serial >= minExcelSerial && serial <= maxExcelSerial {
			return excelEpoch.AddDate(0, 0, int(serial)), nil
		}
	}

	return time.Time{}, errNotDate
}

// pivotTwoDigitYear moves a two-digit-year date into the previous century
// when it would otherwise land too far in the future.
func pivotTwoDigitYear(t time.Time, layout string) time.Time {
	if strings.Contains(layout, "2006") {
		return t
	}
	pivotYear := time.Now().Year() + TwoDigitYearPivot
	if t.Year() > pivotYear {
		return t.AddDate(-100, 0, 0)
	}
	return t
}

// looksLikeDate reports whether s parses as a date in either field order.
// Used by column type inference, which must not depend on configuration.
func looksLikeDate(s string) bool {
	if _, err := ParseDate(s, DayFirst); err == nil {
		return true
	}
	_, err := ParseDate(s, MonthFirst)
	return err == nil
}

// CleanCell removes common spreadsheet artifacts from a cell value:
// - Trims whitespace
// - Removes Excel formula prefix (="...")
// - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			s = s[1 : len(s)-1]
		}
	}

	return strings.TrimSpace(s)
}

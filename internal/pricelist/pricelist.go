// Package pricelist parses supplier price lists into purchase lines that can
// be applied to the ingredient catalogue.
package pricelist

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/shopspring/decimal"

	"escandallo/internal/units"
)

// Line is one priced row from a supplier list: a purchase of Quantity Unit
// of the named ingredient for TotalCost.
type Line struct {
	Name      string
	Quantity  decimal.Decimal
	Unit      units.Unit
	TotalCost decimal.Decimal
}

// ErrNoLines is returned when a document yields no parseable price rows.
var ErrNoLines = errors.New("price list contains no parseable lines")

// Supplier rows look like
//
//	Tomate pera; 5 kg; 11.00
//
// with flexible separators and an optional currency symbol on the price.
var linePattern = regexp.MustCompile(`^\s*(.+?)\s*[;,|]\s*([\d.,]+)\s*([A-Za-z]+)\s*[;,|]\s*(?:€|EUR)?\s*([\d.,]+)\s*(?:€|EUR)?\s*$`)

var cleanWhitespace = regexp.MustCompile(`\s+`)

// ParsePDF extracts the text layer from a PDF document and parses it.
func ParsePDF(data []byte) ([]Line, error) {
	text, err := extractText(data)
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}
	return ParseText(text)
}

// ParseText parses price rows out of plain text, one row per line. Lines
// that do not match the row shape are skipped; a document without a single
// valid row is an error.
func ParseText(text string) ([]Line, error) {
	var lines []Line

	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		row := strings.TrimSpace(scanner.Text())
		if row == "" {
			continue
		}
		line, ok := parseLine(row)
		if !ok {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(lines) == 0 {
		return nil, ErrNoLines
	}
	return lines, nil
}

func parseLine(row string) (Line, bool) {
	matches := linePattern.FindStringSubmatch(row)
	if matches == nil {
		return Line{}, false
	}

	name := cleanWhitespace.ReplaceAllString(strings.TrimSpace(matches[1]), " ")
	if name == "" {
		return Line{}, false
	}

	quantity, err := parseAmount(matches[2])
	if err != nil || quantity.Sign() <= 0 {
		return Line{}, false
	}

	unit, err := parseUnit(matches[3])
	if err != nil {
		return Line{}, false
	}

	totalCost, err := parseAmount(matches[4])
	if err != nil || totalCost.Sign() < 0 {
		return Line{}, false
	}

	return Line{Name: name, Quantity: quantity, Unit: unit, TotalCost: totalCost}, true
}

// parseAmount accepts both decimal-point and decimal-comma notation.
func parseAmount(value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if strings.Contains(value, ",") && !strings.Contains(value, ".") {
		value = strings.ReplaceAll(value, ",", ".")
	} else {
		value = strings.ReplaceAll(value, ",", "")
	}
	return decimal.NewFromString(value)
}

func parseUnit(value string) (units.Unit, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "kg", "kilo", "kilos", "kilogram", "kilograms":
		return units.Kilogram, nil
	case "g", "gr", "gram", "grams":
		return units.Gram, nil
	case "ml", "milliliter", "milliliters", "millilitre", "millilitres":
		return units.Milliliter, nil
	case "u", "ud", "uds", "unit", "units", "piece", "pieces":
		return units.Piece, nil
	}
	return "", units.ErrUnsupportedUnit
}

func extractText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	var builder strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", err
		}
		builder.WriteString(text)
		builder.WriteString("\n")
	}
	return builder.String(), nil
}

package backend

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"feedbackexplorer/internal/domain"
	"feedbackexplorer/internal/vectorstore"
)

// ReviewColumn holds the review text every upload must carry.
const ReviewColumn = "reviewText"

var requiredColumns = []string{ReviewColumn}

// MissingColumnsError reports required CSV columns absent from the header.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return "Missing required columns: " + strings.Join(e.Columns, ", ")
}

// ReadFeedback parses a feedback CSV. Rows whose review is blank are dropped.
// Every other non-empty column becomes metadata.
func ReadFeedback(r io.Reader) ([]vectorstore.Entry, error) {
	cr := csv.NewReader(r)
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &MissingColumnsError{Columns: requiredColumns}
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	textIdx := -1
	for i, name := range header {
		header[i] = strings.TrimSpace(name)
		if header[i] == ReviewColumn && textIdx < 0 {
			textIdx = i
		}
	}
	if textIdx < 0 {
		return nil, &MissingColumnsError{Columns: requiredColumns}
	}

	var entries []vectorstore.Entry
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		text := strings.TrimSpace(rec[textIdx])
		if text == "" {
			continue
		}
		md := domain.Metadata{}
		for i, name := range header {
			if i == textIdx || name == "" {
				continue
			}
			if v, ok := parseValue(name, rec[i]); ok {
				md[name] = v
			}
		}
		entries = append(entries, vectorstore.Entry{Text: text, Metadata: md})
	}
	return entries, nil
}

// parseValue converts a raw cell. Blank cells and NaN are treated as missing,
// numeric strings become float64 and the helpful column's "[a, b]" becomes
// a list of ints.
func parseValue(column, raw string) (any, bool) {
	s := strings.TrimSpace(raw)
	if s == "" || strings.EqualFold(s, "nan") {
		return nil, false
	}
	if column == domain.MetaHelpful {
		if votes, ok := parseIntList(s); ok {
			return votes, true
		}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return f, true
	}
	return s, true
}

func parseIntList(s string) ([]any, bool) {
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return nil, false
	}
	body := strings.TrimSpace(s[1 : len(s)-1])
	if body == "" {
		return []any{}, true
	}
	parts := strings.Split(body, ",")
	out := make([]any, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, false
		}
		out = append(out, n)
	}
	return out, true
}

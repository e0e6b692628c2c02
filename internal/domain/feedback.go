package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultTopK is the number of feedback items requested per question.
const DefaultTopK = 5

// PreviewSize is how many sources an assistant turn shows inline.
const PreviewSize = 2

// VectorStoreStats is the remote vector store's self-reported statistics.
type VectorStoreStats struct {
	TotalEntries int
	Dimension    int
	// Extra holds every other field the server reported, untouched.
	Extra map[string]any
}

// DataLoaded reports whether the store holds anything to query.
func DataLoaded(stats VectorStoreStats) bool {
	return stats.TotalEntries > 0
}

// Well-known metadata keys of the Amazon review dataset.
const (
	MetaReviewerID   = "reviewerID"
	MetaASIN         = "asin"
	MetaOverall      = "overall"
	MetaSummary      = "summary"
	MetaReviewerName = "reviewerName"
	MetaReviewTime   = "reviewTime"
	MetaHelpful      = "helpful"
)

// Metadata is the free-form column data attached to a feedback row.
// Values are strings, numbers or arrays as decoded from JSON.
type Metadata map[string]any

// String returns a textual metadata value. Numbers are formatted.
func (m Metadata) String(key string) (string, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		if t == "" {
			return "", false
		}
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	default:
		return fmt.Sprint(t), true
	}
}

// Rating returns the 1-5 star rating stored under "overall".
func (m Metadata) Rating() (float64, bool) {
	f, ok := toFloat(m[MetaOverall])
	if !ok || f < 1 || f > 5 {
		return 0, false
	}
	return f, true
}

// Helpful returns the [votesUp, votesTotal] pair.
func (m Metadata) Helpful() (up, total int, ok bool) {
	arr, isArr := m[MetaHelpful].([]any)
	if !isArr || len(arr) != 2 {
		return 0, 0, false
	}
	a, okA := toFloat(arr[0])
	b, okB := toFloat(arr[1])
	if !okA || !okB {
		return 0, 0, false
	}
	return int(a), int(b), true
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// FeedbackResult is one retrieved feedback item. Immutable once received.
type FeedbackResult struct {
	Text       string   `json:"text"`
	Similarity float64  `json:"similarity"`
	Metadata   Metadata `json:"metadata"`
}

// MatchPercent is the similarity rounded to a whole percentage.
func (r FeedbackResult) MatchPercent() int {
	s := r.Similarity
	if s < 0 {
		s = 0
	}
	if s > 1 {
		s = 1
	}
	return int(s*100 + 0.5)
}

// ResultSet is the latest completed query's retrieval output.
type ResultSet struct {
	Summary string
	Results []FeedbackResult
}

// QueryRequest is one question sent to the retrieval backend.
type QueryRequest struct {
	QueryText       string
	TopK            int
	GenerateSummary bool
}

// Normalize trims the text and fills the default TopK.
func (q QueryRequest) Normalize() QueryRequest {
	q.QueryText = strings.TrimSpace(q.QueryText)
	if q.TopK <= 0 {
		q.TopK = DefaultTopK
	}
	return q
}

// QueryResult is the backend's answer to a QueryRequest.
type QueryResult struct {
	Summary string
	Results []FeedbackResult
}

// IngestResult is the backend's report after processing an upload.
type IngestResult struct {
	Message          string
	TotalEntries     int
	ProcessedEntries int
}

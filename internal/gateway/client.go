// Package gateway issues the status, ingest and query calls against the
// feedback API and normalizes every failure into a *domain.Error.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"feedbackexplorer/internal/domain"
)

const (
	opStatus = "status"
	opIngest = "ingest"
	opQuery  = "query"

	// maxErrorBody caps how much of an error response is read for its detail.
	maxErrorBody = 64 << 10
)

// Messages shown when the server gives no detail of its own.
const (
	StatusFallback = "Unable to connect to the feedback service. Please make sure it is running."
	IngestFallback = "An error occurred while uploading the file. Please try again."
	QueryFallback  = "An error occurred while processing your query. Please try again."
)

// Config configures the API client.
type Config struct {
	BaseURL string
	// HTTPClient defaults to a client without a timeout: ingesting a large
	// file can take minutes and the caller's context bounds the wait.
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client is the typed wrapper around the feedback API.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates an API client for cfg.BaseURL.
func NewClient(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    hc,
		logger:  logger.Named("gateway"),
	}
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

type statusResponse struct {
	Status      string         `json:"status"`
	Message     string         `json:"message"`
	VectorStore map[string]any `json:"vector_store"`
}

// Status fetches the vector store statistics.
func (c *Client) Status(ctx context.Context) (domain.VectorStoreStats, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status", nil)
	if err != nil {
		return domain.VectorStoreStats{}, domain.NetworkError(opStatus, StatusFallback, err)
	}
	var out statusResponse
	if err := c.do(req, opStatus, StatusFallback, &out); err != nil {
		return domain.VectorStoreStats{}, err
	}
	if out.Status == "error" {
		detail := out.Message
		if detail == "" {
			detail = StatusFallback
		}
		return domain.VectorStoreStats{}, domain.ServerError(opStatus, http.StatusOK, detail)
	}
	if out.VectorStore == nil {
		return domain.VectorStoreStats{}, domain.ServerError(opStatus, http.StatusOK, "malformed status response")
	}
	return statsFromPayload(out.VectorStore), nil
}

func statsFromPayload(payload map[string]any) domain.VectorStoreStats {
	stats := domain.VectorStoreStats{Extra: make(map[string]any, len(payload))}
	for k, v := range payload {
		switch k {
		case "total_entries":
			if f, ok := v.(float64); ok && f > 0 {
				stats.TotalEntries = int(f)
			}
		case "dimension":
			if f, ok := v.(float64); ok {
				stats.Dimension = int(f)
			}
		default:
			stats.Extra[k] = v
		}
	}
	return stats
}

type ingestResponse struct {
	Message          string `json:"message"`
	TotalEntries     int    `json:"total_entries"`
	ProcessedEntries int    `json:"processed_entries"`
}

// Ingest uploads file for processing in batches of batchSize. The body is
// streamed; the call returns once the server has finished processing.
func (c *Client) Ingest(ctx context.Context, file domain.UploadFile, batchSize int) (domain.IngestResult, error) {
	if !file.IsCSV() {
		return domain.IngestResult{}, domain.ErrInvalidFileType
	}
	if batchSize < 1 {
		return domain.IngestResult{}, domain.ErrInvalidBatchSize
	}
	if file.Open == nil {
		return domain.IngestResult{}, domain.ValidationError(opIngest, "file has no contents")
	}
	src, err := file.Open()
	if err != nil {
		return domain.IngestResult{}, &domain.Error{Kind: domain.KindValidation, Op: opIngest, Detail: "cannot read " + file.Name, Err: err}
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		defer src.Close()
		pw.CloseWithError(writeIngestForm(mw, file.Name, src, batchSize))
	}()
	defer pr.Close()

	endpoint := c.baseURL + "/feedback/ingest?" + url.Values{"batch_size": {strconv.Itoa(batchSize)}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, pr)
	if err != nil {
		return domain.IngestResult{}, domain.NetworkError(opIngest, IngestFallback, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	c.logger.Info("uploading feedback file",
		zap.String("file", file.Name),
		zap.Int64("size", file.Size),
		zap.Int("batch_size", batchSize))

	var out ingestResponse
	if err := c.do(req, opIngest, IngestFallback, &out); err != nil {
		return domain.IngestResult{}, err
	}
	return domain.IngestResult{
		Message:          out.Message,
		TotalEntries:     out.TotalEntries,
		ProcessedEntries: out.ProcessedEntries,
	}, nil
}

func writeIngestForm(mw *multipart.Writer, name string, src io.Reader, batchSize int) error {
	if err := mw.WriteField("batch_size", strconv.Itoa(batchSize)); err != nil {
		return err
	}
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, src); err != nil {
		return fmt.Errorf("copy %s: %w", name, err)
	}
	return mw.Close()
}

type queryRequest struct {
	Query           string `json:"query"`
	TopK            int    `json:"top_k"`
	GenerateSummary bool   `json:"generate_summary"`
}

type queryResponse struct {
	Summary *string                 `json:"summary"`
	Results []domain.FeedbackResult `json:"results"`
}

// Query runs a semantic retrieval, optionally with a summary. An empty
// question fails without touching the network.
func (c *Client) Query(ctx context.Context, q domain.QueryRequest) (domain.QueryResult, error) {
	q = q.Normalize()
	if q.QueryText == "" {
		return domain.QueryResult{}, domain.ErrEmptyQuery
	}
	body, err := json.Marshal(queryRequest{Query: q.QueryText, TopK: q.TopK, GenerateSummary: q.GenerateSummary})
	if err != nil {
		return domain.QueryResult{}, domain.ValidationError(opQuery, err.Error())
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/query", bytes.NewReader(body))
	if err != nil {
		return domain.QueryResult{}, domain.NetworkError(opQuery, QueryFallback, err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out queryResponse
	if err := c.do(req, opQuery, QueryFallback, &out); err != nil {
		return domain.QueryResult{}, err
	}
	res := domain.QueryResult{Results: out.Results}
	if out.Summary != nil {
		res.Summary = *out.Summary
	}
	if res.Results == nil {
		res.Results = []domain.FeedbackResult{}
	}
	for i := range res.Results {
		if res.Results[i].Metadata == nil {
			res.Results[i].Metadata = domain.Metadata{}
		}
	}
	return res, nil
}

// do sends req and decodes a 2xx JSON body into out. Every failure comes
// back as a *domain.Error.
func (c *Client) do(req *http.Request, op, fallback string, out any) error {
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Accept", "application/json")
	log := c.logger.With(zap.String("op", op), zap.String("request_id", requestID))

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn("request failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return domain.NetworkError(op, fallback, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := readDetail(resp.Body, fallback)
		log.Warn("server returned error",
			zap.Int("status", resp.StatusCode),
			zap.String("detail", detail),
			zap.Duration("elapsed", time.Since(start)))
		return domain.ServerError(op, resp.StatusCode, detail)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		log.Warn("undecodable response", zap.Error(err))
		if errors.Is(err, io.EOF) {
			return domain.ServerError(op, resp.StatusCode, "empty response from server")
		}
		return &domain.Error{Kind: domain.KindServer, Op: op, Detail: "malformed response from server", StatusCode: resp.StatusCode, Err: err}
	}
	log.Debug("request completed", zap.Int("status", resp.StatusCode), zap.Duration("elapsed", time.Since(start)))
	return nil
}

// readDetail extracts the {"detail": ...} message of an error response.
// FastAPI-style validation errors carry a list of {"msg": ...} objects.
func readDetail(body io.Reader, fallback string) string {
	data, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil || len(data) == 0 {
		return fallback
	}
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(data, &payload); err != nil || len(payload.Detail) == 0 {
		return fallback
	}
	var s string
	if err := json.Unmarshal(payload.Detail, &s); err == nil {
		if strings.TrimSpace(s) == "" {
			return fallback
		}
		return s
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(payload.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
	}
	return fallback
}

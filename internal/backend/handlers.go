package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"feedbackexplorer/internal/domain"
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"message": "Welcome to the Customer Feedback Explorer API"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"vector_store": s.index.Stats(),
	})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	batchSize, err := parseBatchSize(r.URL.Query().Get("batch_size"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart upload")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()
	// The query parameter wins; older clients only send the form field.
	if r.URL.Query().Get("batch_size") == "" {
		if batchSize, err = parseBatchSize(r.FormValue("batch_size")); err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()
	if !strings.HasSuffix(strings.ToLower(header.Filename), ".csv") {
		s.respondError(w, http.StatusBadRequest, "Only CSV files are supported")
		return
	}

	entries, err := ReadFeedback(file)
	if err != nil {
		var missing *MissingColumnsError
		if errors.As(err, &missing) {
			s.respondError(w, http.StatusBadRequest, missing.Error())
			return
		}
		s.respondError(w, http.StatusBadRequest, "Error processing file: "+err.Error())
		return
	}

	processed, err := s.index.Ingest(r.Context(), entries, batchSize)
	if err != nil {
		s.logger.Error("ingest failed", zap.String("file", header.Filename), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "Error processing file: "+err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"message":           fmt.Sprintf("Successfully processed %d feedback entries", processed),
		"total_entries":     len(entries),
		"processed_entries": processed,
	})
}

func parseBatchSize(raw string) (int, error) {
	if raw == "" {
		return DefaultBatchSize, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, errors.New("batch_size must be a positive integer")
	}
	return n, nil
}

type queryRequest struct {
	Query           string `json:"query"`
	TopK            *int   `json:"top_k"`
	GenerateSummary *bool  `json:"generate_summary"`
}

type queryResponse struct {
	Results []domain.FeedbackResult `json:"results"`
	Summary *string                 `json:"summary"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		s.respondError(w, http.StatusBadRequest, "query must not be empty")
		return
	}
	topK := domain.DefaultTopK
	if req.TopK != nil {
		topK = *req.TopK
	}
	if topK < 1 {
		s.respondError(w, http.StatusBadRequest, "top_k must be a positive integer")
		return
	}
	s.logger.Debug("query request", zap.String("query", query), zap.Int("top_k", topK))

	results, err := s.index.Search(r.Context(), query, topK)
	if err != nil {
		s.logger.Error("query failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "Error processing query: "+err.Error())
		return
	}

	resp := queryResponse{Results: results}
	if (req.GenerateSummary == nil || *req.GenerateSummary) && len(results) > 0 && s.summarizer != nil {
		texts := make([]string, len(results))
		for i, res := range results {
			texts[i] = res.Text
		}
		summary, err := s.summarizer.Summarize(query, texts)
		if err != nil {
			s.logger.Error("summary failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, "Error processing query: "+err.Error())
			return
		}
		resp.Summary = &summary
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, detail string) {
	s.respondJSON(w, status, map[string]string{"detail": detail})
}

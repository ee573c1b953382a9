package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/jd-highlighter/internal/db"
	"github.com/jonathan/jd-highlighter/internal/highlight"
	"github.com/jonathan/jd-highlighter/internal/ingestion"
	"github.com/jonathan/jd-highlighter/internal/rendering"
)

// Output formats accepted by the highlight endpoints.
const (
	FormatJSON  = "json"
	FormatHTML  = "html"
	FormatLaTeX = "latex"
	FormatText  = "text"
)

// HighlightRequest represents the request body for /highlight
type HighlightRequest struct {
	Text      string `json:"text"`
	Format    string `json:"format,omitempty"`
	HTMLInput bool   `json:"html_input,omitempty"`
	Clean     bool   `json:"clean,omitempty"`
	Title     string `json:"title,omitempty"`
}

// BatchRequest represents the request body for /highlight/batch
type BatchRequest struct {
	Texts     []string `json:"texts"`
	Format    string   `json:"format,omitempty"`
	HTMLInput bool     `json:"html_input,omitempty"`
	Clean     bool     `json:"clean,omitempty"`
}

// HighlightResponse carries one highlighted document in the requested
// format. Exactly one of Document, HTML, LaTeX and Text is set.
type HighlightResponse struct {
	Document *highlight.Document `json:"document,omitempty"`
	HTML     string              `json:"html,omitempty"`
	LaTeX    string              `json:"latex,omitempty"`
	Text     string              `json:"text,omitempty"`
	Stats    map[string]int      `json:"stats"`
	Degraded bool                `json:"degraded"`
}

// BatchResponse represents the response for /highlight/batch
type BatchResponse struct {
	Results []HighlightResponse `json:"results"`
	Count   int                 `json:"count"`
}

// CategoryResponse describes one registry category
type CategoryResponse struct {
	ID          string             `json:"id"`
	Label       string             `json:"label"`
	Description string             `json:"description,omitempty"`
	Kind        highlight.SpanKind `json:"kind"`
	Class       string             `json:"class"`
	Rank        int                `json:"rank"`
}

// PostingHighlightResponse represents the response for
// /job-postings/{id}/highlights
type PostingHighlightResponse struct {
	PostingID uuid.UUID `json:"posting_id"`
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Platform  string    `json:"platform"`
	HighlightResponse
}

// ListJobPostingsResponse represents the response for listing job postings
type ListJobPostingsResponse struct {
	Postings []db.JobPosting `json:"postings"`
	Count    int             `json:"count"`
	Limit    int             `json:"limit"`
	Offset   int             `json:"offset"`
}

// handleHealth returns server health status. A configured store that does
// not answer a ping turns the status to degraded with a 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, code, store := "ok", http.StatusOK, "disabled"
	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			s.logger.Printf("[server] health: store ping failed id=%s: %v", RequestIDFrom(r.Context()), err)
			status, code, store = "degraded", http.StatusServiceUnavailable, "unreachable"
		} else {
			store = "ok"
		}
	}

	size, hits, misses := s.memo.stats()
	s.jsonResponse(w, code, map[string]any{
		"status":      status,
		"categories":  s.registry.Len(),
		"store":       store,
		"memo_size":   size,
		"memo_hits":   hits,
		"memo_misses": misses,
	})
}

// handleCategories lists the registry in precedence order
func (s *Server) handleCategories(w http.ResponseWriter, _ *http.Request) {
	categories := s.registry.Categories()
	resp := make([]CategoryResponse, len(categories))
	for i, c := range categories {
		resp[i] = CategoryResponse{
			ID:          c.ID,
			Label:       c.Label,
			Description: c.Description,
			Kind:        c.Kind,
			Class:       c.Class,
			Rank:        i,
		}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"categories": resp})
}

// handleLegend returns the legend entries in precedence order
func (s *Server) handleLegend(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.legend)
}

// handleHighlight segments one description
func (s *Server) handleHighlight(w http.ResponseWriter, r *http.Request) {
	var req HighlightRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	format, err := parseFormat(req.Format)
	if err != nil {
		s.errorFromErr(w, r, err)
		return
	}

	doc, err := s.highlightText(req.Text, req.HTMLInput, req.Clean)
	if err != nil {
		s.errorFromErr(w, r, err)
		return
	}

	resp, err := s.render(doc, format, req.Title)
	if err != nil {
		s.errorFromErr(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

// handleHighlightBatch segments independent descriptions concurrently.
// Results keep the request order.
func (s *Server) handleHighlightBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	if len(req.Texts) == 0 {
		s.errorFromErr(w, r, &ErrValidation{Field: "texts", Message: "at least one text is required"})
		return
	}
	if len(req.Texts) > s.cfg.MaxBatchSize {
		s.errorFromErr(w, r, &ErrValidation{Field: "texts", Message: "at most " + strconv.Itoa(s.cfg.MaxBatchSize) + " texts per batch"})
		return
	}

	format, err := parseFormat(req.Format)
	if err != nil {
		s.errorFromErr(w, r, err)
		return
	}

	results := make([]HighlightResponse, len(req.Texts))
	g, ctx := errgroup.WithContext(r.Context())
	g.SetLimit(s.cfg.BatchConcurrency)

	for i, text := range req.Texts {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			doc, err := s.highlightText(text, req.HTMLInput, req.Clean)
			if err != nil {
				return err
			}
			results[i], err = s.render(doc, format, "")
			return err
		})
	}

	if err := g.Wait(); err != nil {
		s.errorFromErr(w, r, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, BatchResponse{Results: results, Count: len(results)})
}

// handleListJobPostings lists stored job postings with pagination
func (s *Server) handleListJobPostings(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.errorFromErr(w, r, &ErrStoreUnavailable{})
		return
	}

	opts := db.ListJobPostingsOptions{
		Limit:  parseQueryInt(r, "limit", db.DefaultListLimit, db.MaxListLimit),
		Offset: parseQueryInt(r, "offset", 0, 0),
	}
	if platform := r.URL.Query().Get("platform"); platform != "" {
		opts.Platform = &platform
	}
	opts = opts.Normalized()

	postings, total, err := s.store.ListJobPostings(r.Context(), opts)
	if err != nil {
		s.errorFromErr(w, r, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, ListJobPostingsResponse{
		Postings: postings,
		Count:    total,
		Limit:    opts.Limit,
		Offset:   opts.Offset,
	})
}

// handleJobPostingHighlights highlights the stored text of a job posting
func (s *Server) handleJobPostingHighlights(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.errorFromErr(w, r, &ErrStoreUnavailable{})
		return
	}

	postingID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorFromErr(w, r, &ErrValidation{Field: "id", Message: "invalid job posting ID"})
		return
	}

	format, err := parseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.errorFromErr(w, r, err)
		return
	}

	posting, err := s.store.GetJobPostingByID(r.Context(), postingID)
	if err == nil && posting == nil {
		err = &ErrPostingNotFound{PostingID: postingID}
	}
	if err != nil {
		s.errorFromErr(w, r, err)
		return
	}

	resp, err := s.highlightPosting(posting, format)
	if err != nil {
		s.errorFromErr(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

// handleJobPostingHighlightsByURL highlights the stored posting with the
// given ?url=
func (s *Server) handleJobPostingHighlightsByURL(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.errorFromErr(w, r, &ErrStoreUnavailable{})
		return
	}

	postingURL := strings.TrimSpace(r.URL.Query().Get("url"))
	if postingURL == "" {
		s.errorFromErr(w, r, &ErrValidation{Field: "url", Message: "url query parameter is required"})
		return
	}

	format, err := parseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.errorFromErr(w, r, err)
		return
	}

	posting, err := s.store.GetJobPostingByURL(r.Context(), postingURL)
	if err == nil && posting == nil {
		err = &ErrPostingNotFound{URL: postingURL}
	}
	if err != nil {
		s.errorFromErr(w, r, err)
		return
	}

	resp, err := s.highlightPosting(posting, format)
	if err != nil {
		s.errorFromErr(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) highlightPosting(posting *db.JobPosting, format string) (*PostingHighlightResponse, error) {
	text, ok := posting.Description()
	if !ok {
		return nil, &ErrNoDescription{PostingID: posting.ID}
	}

	doc, err := s.highlightText(text, false, false)
	if err != nil {
		return nil, err
	}
	rendered, err := s.render(doc, format, posting.Title())
	if err != nil {
		return nil, err
	}

	return &PostingHighlightResponse{
		PostingID:         posting.ID,
		URL:               posting.URL,
		Title:             posting.Title(),
		Platform:          posting.PlatformName(),
		HighlightResponse: rendered,
	}, nil
}

// highlightText ingests raw input and segments it, reusing earlier results
// for identical text. Degraded documents are not memoized.
func (s *Server) highlightText(raw string, htmlInput, clean bool) (*highlight.Document, error) {
	text, _, err := ingestion.Ingest(strings.NewReader(raw), ingestion.Options{
		HTML:  htmlInput,
		Clean: clean,
	})
	if err != nil {
		return nil, err
	}

	key := ingestion.ContentHash(text)
	if doc, ok := s.memo.get(key); ok {
		return doc, nil
	}

	doc := s.segmenter.SegmentDocument(text)
	if !doc.Degraded {
		s.memo.put(key, doc)
	}
	return doc, nil
}

// render converts a document to the requested output format.
func (s *Server) render(doc *highlight.Document, format, title string) (HighlightResponse, error) {
	resp := HighlightResponse{
		Stats:    doc.Stats(),
		Degraded: doc.Degraded,
	}

	switch format {
	case FormatJSON:
		resp.Document = doc
	case FormatHTML:
		var buf bytes.Buffer
		if err := rendering.RenderHTML(&buf, doc, s.renderCtx); err != nil {
			return HighlightResponse{}, err
		}
		resp.HTML = buf.String()
	case FormatLaTeX:
		out, err := rendering.RenderLaTeX(doc, s.renderCtx, title)
		if err != nil {
			return HighlightResponse{}, err
		}
		resp.LaTeX = out
	case FormatText:
		resp.Text = rendering.RenderAnnotated(doc)
	}
	return resp, nil
}

// parseFormat defaults an empty format to JSON.
func parseFormat(format string) (string, error) {
	switch format {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatHTML, FormatLaTeX, FormatText:
		return format, nil
	default:
		return "", &ErrValidation{Field: "format", Message: "must be one of json, html, latex, text"}
	}
}

// parseQueryInt reads an integer query parameter, falling back to def when
// absent or malformed and clamping to limit when limit is positive.
func parseQueryInt(r *http.Request, key string, def, limit int) int {
	value, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || value < 0 {
		return def
	}
	if limit > 0 && value > limit {
		return limit
	}
	return value
}

// decodeJSON reads a size-capped JSON body. It writes the error response
// itself and reports whether decoding succeeded.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if s.cfg.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	}

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			s.errorFromErr(w, r, err)
			return false
		}
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Printf("[server] error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// errorFromErr maps err to a status code. Internal errors are logged and
// their details withheld from the client.
func (s *Server) errorFromErr(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.Printf("[server] %s %s failed id=%s: %v", r.Method, r.URL.Path, RequestIDFrom(r.Context()), err)
		s.errorResponse(w, status, "internal server error")
		return
	}
	s.errorResponse(w, status, err.Error())
}

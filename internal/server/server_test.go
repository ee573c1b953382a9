package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/jd-highlighter/internal/db"
	"github.com/jonathan/jd-highlighter/internal/highlight"
	"github.com/jonathan/jd-highlighter/internal/legend"
	"github.com/jonathan/jd-highlighter/internal/server/ratelimit"
)

const samplePosting = "Remote, $120k-$150k/yr, 5+ years Python, contact hr@example.com"

// mockStore implements PostingStore in memory
type mockStore struct {
	postings map[uuid.UUID]*db.JobPosting
	err      error
	pingErr  error
	lastOpts db.ListJobPostingsOptions
}

func newMockStore() *mockStore {
	return &mockStore{postings: make(map[uuid.UUID]*db.JobPosting)}
}

func (m *mockStore) add(text string) uuid.UUID {
	id := uuid.New()
	title := "Backend Engineer"
	m.postings[id] = &db.JobPosting{
		ID:          id,
		URL:         "https://jobs.lever.co/acme/" + id.String(),
		RoleTitle:   &title,
		CleanedText: &text,
	}
	return id
}

func (m *mockStore) Ping(_ context.Context) error {
	return m.pingErr
}

func (m *mockStore) GetJobPostingByURL(_ context.Context, postingURL string) (*db.JobPosting, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, p := range m.postings {
		if p.URL == postingURL {
			return p, nil
		}
	}
	return nil, nil
}

func (m *mockStore) GetJobPostingByID(_ context.Context, id uuid.UUID) (*db.JobPosting, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.postings[id], nil
}

func (m *mockStore) ListJobPostings(_ context.Context, opts db.ListJobPostingsOptions) ([]db.JobPosting, int, error) {
	m.lastOpts = opts
	if m.err != nil {
		return nil, 0, m.err
	}
	var out []db.JobPosting
	for _, p := range m.postings {
		out = append(out, *p)
	}
	return out, len(out), nil
}

type testServer struct {
	*Server
	logs *bytes.Buffer
}

func newTestServer(t *testing.T, store PostingStore, mutate ...func(*Config)) *testServer {
	t.Helper()
	reg := highlight.MustDefaultRegistry()
	leg, err := legend.Default(reg)
	require.NoError(t, err)

	logs := &bytes.Buffer{}
	cfg := Config{
		Port:             0,
		MaxBodyBytes:     1 << 20,
		BatchConcurrency: 4,
		MemoSize:         16,
		Budget:           highlight.DefaultBudget(),
		Logger:           log.New(logs, "", 0),
	}
	for _, m := range mutate {
		m(&cfg)
	}

	s, err := New(reg, leg, store, cfg)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return &testServer{Server: s, logs: logs}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	ts.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestNew_RequiresRegistryAndLegend(t *testing.T) {
	_, err := New(nil, nil, nil, Config{})
	assert.Error(t, err)
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[map[string]any](t, w)
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, float64(17), resp["categories"])
	assert.Equal(t, "disabled", resp["store"])
}

func TestHealthEndpoint_PingsStore(t *testing.T) {
	t.Run("reachable", func(t *testing.T) {
		s := newTestServer(t, newMockStore())

		w := s.do(t, http.MethodGet, "/health", nil)
		require.Equal(t, http.StatusOK, w.Code)

		resp := decode[map[string]any](t, w)
		assert.Equal(t, "ok", resp["status"])
		assert.Equal(t, "ok", resp["store"])
	})

	t.Run("unreachable", func(t *testing.T) {
		store := newMockStore()
		store.pingErr = errors.New("dial tcp 10.0.0.5:5432: connection refused")
		s := newTestServer(t, store)

		w := s.do(t, http.MethodGet, "/health", nil)
		require.Equal(t, http.StatusServiceUnavailable, w.Code)

		resp := decode[map[string]any](t, w)
		assert.Equal(t, "degraded", resp["status"])
		assert.Equal(t, "unreachable", resp["store"])
		assert.NotContains(t, w.Body.String(), "10.0.0.5")
		assert.Contains(t, s.logs.String(), "store ping failed")
	})
}

func TestCategoriesEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodGet, "/categories", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[struct {
		Categories []CategoryResponse `json:"categories"`
	}](t, w)
	require.Len(t, resp.Categories, 17)
	assert.Equal(t, "salary", resp.Categories[0].ID)
	assert.Equal(t, 0, resp.Categories[0].Rank)
	assert.Equal(t, "url", resp.Categories[16].ID)
	assert.Equal(t, highlight.KindLink, resp.Categories[16].Kind)
	assert.Equal(t, "hl-work-arrangement", resp.Categories[2].Class)
}

func TestLegendEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodGet, "/legend", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[struct {
		Entries []legend.Entry `json:"entries"`
	}](t, w)
	require.Len(t, resp.Entries, 17)
	assert.Equal(t, "salary", resp.Entries[0].Category)
	assert.NotEmpty(t, resp.Entries[0].Examples)
}

func TestHighlight_JSON(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodPost, "/highlight", HighlightRequest{Text: samplePosting})
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[HighlightResponse](t, w)
	require.NotNil(t, resp.Document)
	assert.False(t, resp.Degraded)
	assert.Equal(t, samplePosting, resp.Document.Text())
	assert.Equal(t, map[string]int{
		"work_arrangement": 1,
		"salary":           1,
		"experience":       1,
		"programming":      1,
		"email":            1,
	}, resp.Stats)

	var email highlight.Segment
	for _, seg := range resp.Document.Paragraphs[0].Segments {
		if seg.CategoryID == "email" {
			email = seg
		}
	}
	assert.Equal(t, highlight.KindEmail, email.Kind)
	assert.Equal(t, "mailto:hr@example.com", email.Href)
}

func TestHighlight_HTML(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodPost, "/highlight", HighlightRequest{Text: samplePosting + "\n\nApply at https://example.com/apply", Format: FormatHTML})
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[HighlightResponse](t, w)
	assert.Nil(t, resp.Document)

	page, err := goquery.NewDocumentFromReader(strings.NewReader(resp.HTML))
	require.NoError(t, err)
	assert.Equal(t, 2, page.Find("p").Length())
	assert.Equal(t, 1, page.Find("br.spacer").Length())
	assert.Equal(t, 2, page.Find("a").Length())
	assert.Equal(t, 1, page.Find("a[target=_blank]").Length())
}

func TestHighlight_LaTeXAndText(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodPost, "/highlight", HighlightRequest{Text: "Remote role", Format: FormatLaTeX, Title: "Backend"})
	require.Equal(t, http.StatusOK, w.Code)
	latex := decode[HighlightResponse](t, w)
	assert.Contains(t, latex.LaTeX, `\section*{Backend}`)
	assert.Contains(t, latex.LaTeX, `\hl{hl-work-arrangement}{Remote}`)

	w = s.do(t, http.MethodPost, "/highlight", HighlightRequest{Text: "Remote role", Format: FormatText})
	require.Equal(t, http.StatusOK, w.Code)
	text := decode[HighlightResponse](t, w)
	assert.Equal(t, "[Remote]{work_arrangement} role", text.Text)
}

func TestHighlight_HTMLInput(t *testing.T) {
	s := newTestServer(t, nil)

	markup := `<html><body><nav>Jobs</nav><div class="job-description"><p>Remote role</p><ul><li>5+ years Python</li></ul></div></body></html>`
	w := s.do(t, http.MethodPost, "/highlight", HighlightRequest{Text: markup, HTMLInput: true})
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[HighlightResponse](t, w)
	assert.Equal(t, "Remote role\n\n- 5+ years Python", resp.Document.Text())
	assert.Equal(t, 1, resp.Stats["work_arrangement"])
	assert.Equal(t, 1, resp.Stats["programming"])
}

func TestHighlight_BadRequests(t *testing.T) {
	tests := []struct {
		name   string
		body   any
		status int
		want   string
	}{
		{"invalid json", `{"text":`, http.StatusBadRequest, "Invalid request body"},
		{"unknown format", HighlightRequest{Text: "x", Format: "pdf"}, http.StatusBadRequest, "format"},
		{"body too large", HighlightRequest{Text: strings.Repeat("a", 200)}, http.StatusRequestEntityTooLarge, "request body too large"},
		{"html without text", `{"text":"<script>x()</script>","html_input":true}`, http.StatusUnprocessableEntity, "no text found"},
	}

	s := newTestServer(t, nil, func(c *Config) { c.MaxBodyBytes = 128 })
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/highlight", tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.want)
		})
	}
}

func TestHighlight_MemoizesByContent(t *testing.T) {
	s := newTestServer(t, nil)

	for i := 0; i < 3; i++ {
		w := s.do(t, http.MethodPost, "/highlight", HighlightRequest{Text: samplePosting})
		require.Equal(t, http.StatusOK, w.Code)
	}

	size, hits, misses := s.memo.stats()
	assert.Equal(t, 1, size)
	assert.Equal(t, 2, hits)
	assert.Equal(t, 1, misses)
}

func TestHighlight_DegradedIsNotMemoized(t *testing.T) {
	s := newTestServer(t, nil, func(c *Config) { c.Budget = highlight.Budget{MaxSteps: 1} })

	w := s.do(t, http.MethodPost, "/highlight", HighlightRequest{Text: samplePosting})
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[HighlightResponse](t, w)
	assert.True(t, resp.Degraded)
	assert.Empty(t, resp.Stats)
	assert.Equal(t, samplePosting, resp.Document.Text())
	assert.Contains(t, s.logs.String(), "[highlight]")

	size, _, _ := s.memo.stats()
	assert.Equal(t, 0, size)
}

func TestHighlightBatch(t *testing.T) {
	s := newTestServer(t, nil, func(c *Config) { c.BatchConcurrency = 2 })

	texts := []string{"Remote role", "hr@example.com", "nothing here", "Hybrid, 3+ years", "https://example.com"}
	w := s.do(t, http.MethodPost, "/highlight/batch", BatchRequest{Texts: texts})
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[BatchResponse](t, w)
	require.Equal(t, len(texts), resp.Count)
	for i, result := range resp.Results {
		require.NotNil(t, result.Document)
		assert.Equal(t, texts[i], result.Document.Text(), "results keep request order")
	}
	assert.Equal(t, 1, resp.Results[1].Stats["email"])
	assert.Empty(t, resp.Results[2].Stats)
	assert.Equal(t, 1, resp.Results[4].Stats["url"])
}

func TestHighlightBatch_Validation(t *testing.T) {
	s := newTestServer(t, nil, func(c *Config) { c.MaxBatchSize = 2 })

	w := s.do(t, http.MethodPost, "/highlight/batch", BatchRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "at least one text")

	w = s.do(t, http.MethodPost, "/highlight/batch", BatchRequest{Texts: []string{"a", "b", "c"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "at most 2 texts")

	w = s.do(t, http.MethodPost, "/highlight/batch", BatchRequest{Texts: []string{"a"}, Format: "doc"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestJobPostingHighlights(t *testing.T) {
	store := newMockStore()
	id := store.add("Remote role\n\nContact hr@example.com")
	s := newTestServer(t, store)

	w := s.do(t, http.MethodGet, "/job-postings/"+id.String()+"/highlights?format=html", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[PostingHighlightResponse](t, w)
	assert.Equal(t, id, resp.PostingID)
	assert.Equal(t, "Backend Engineer", resp.Title)
	assert.Equal(t, db.PlatformLever, resp.Platform)
	assert.Contains(t, resp.HTML, `href="mailto:hr@example.com"`)
	assert.Equal(t, 1, resp.Stats["work_arrangement"])
}

func TestJobPostingHighlightsByURL(t *testing.T) {
	store := newMockStore()
	id := store.add("Remote role\n\nContact hr@example.com")
	s := newTestServer(t, store)

	postingURL := "https://jobs.lever.co/acme/" + id.String()
	w := s.do(t, http.MethodGet, "/job-postings/highlights?format=text&url="+url.QueryEscape(postingURL), nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[PostingHighlightResponse](t, w)
	assert.Equal(t, id, resp.PostingID)
	assert.Equal(t, postingURL, resp.URL)
	assert.Equal(t, "[Remote]{work_arrangement} role\n\nContact [hr@example.com]{email -> mailto:hr@example.com}", resp.Text)
}

func TestJobPostingHighlightsByURL_Errors(t *testing.T) {
	t.Run("no store", func(t *testing.T) {
		s := newTestServer(t, nil)
		w := s.do(t, http.MethodGet, "/job-postings/highlights?url=https://example.com/job", nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	s := newTestServer(t, newMockStore())

	t.Run("missing url", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/job-postings/highlights", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "url query parameter is required")
	})

	t.Run("not found", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/job-postings/highlights?url=https://example.com/missing", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "https://example.com/missing")
	})
}

func TestJobPostingHighlights_Errors(t *testing.T) {
	t.Run("no store", func(t *testing.T) {
		s := newTestServer(t, nil)
		w := s.do(t, http.MethodGet, "/job-postings/"+uuid.NewString()+"/highlights", nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	store := newMockStore()
	s := newTestServer(t, store)

	t.Run("invalid id", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/job-postings/not-a-uuid/highlights", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("not found", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/job-postings/"+uuid.NewString()+"/highlights", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("no description", func(t *testing.T) {
		id := store.add("   ")
		w := s.do(t, http.MethodGet, "/job-postings/"+id.String()+"/highlights", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("store failure hides details", func(t *testing.T) {
		failing := newMockStore()
		failing.err = errors.New("connection refused by 10.0.0.5")
		fs := newTestServer(t, failing)

		w := fs.do(t, http.MethodGet, "/job-postings/"+uuid.NewString()+"/highlights", nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "10.0.0.5")
		assert.Contains(t, fs.logs.String(), "connection refused")
	})
}

func TestListJobPostings(t *testing.T) {
	store := newMockStore()
	store.add("Remote role")
	s := newTestServer(t, store)

	w := s.do(t, http.MethodGet, "/job-postings?limit=500&offset=-1&platform=lever", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[ListJobPostingsResponse](t, w)
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, 100, resp.Limit)
	assert.Equal(t, 0, resp.Offset)
	require.NotNil(t, store.lastOpts.Platform)
	assert.Equal(t, "lever", *store.lastOpts.Platform)
}

func TestListJobPostings_ZeroLimitReportsDefault(t *testing.T) {
	store := newMockStore()
	s := newTestServer(t, store)

	w := s.do(t, http.MethodGet, "/job-postings?limit=0", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[ListJobPostingsResponse](t, w)
	assert.Equal(t, db.DefaultListLimit, resp.Limit)
	assert.Equal(t, db.DefaultListLimit, store.lastOpts.Limit)
}

func TestMiddleware_RequestID(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodGet, "/health", nil)
	generated := w.Header().Get(RequestIDHeader)
	_, err := uuid.Parse(generated)
	assert.NoError(t, err)

	incoming := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, incoming)
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, incoming, w.Header().Get(RequestIDHeader))
	assert.Contains(t, s.logs.String(), "id="+incoming)

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "<script>")
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.NotEqual(t, "<script>", w.Header().Get(RequestIDHeader))
}

func TestMiddleware_CORS(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodOptions, "/highlight", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestMiddleware_RateLimit(t *testing.T) {
	s := newTestServer(t, nil, func(c *Config) {
		c.RateLimit = ratelimit.DefaultConfig(0.001, 1)
		c.RateLimit.CleanupInterval = 0
	})

	w := s.do(t, http.MethodPost, "/highlight", HighlightRequest{Text: "x"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))

	w = s.do(t, http.MethodPost, "/highlight", HighlightRequest{Text: "x"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "rate_limit_exceeded")

	for i := 0; i < 3; i++ {
		w = s.do(t, http.MethodGet, "/health", nil)
		assert.Equal(t, http.StatusOK, w.Code, "health is exempt")
	}
}

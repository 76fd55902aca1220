package sentiment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexiconScore(t *testing.T) {
	lex := DefaultLexicon()
	assert.Equal(t, 5, lex.Score("Stocks SURGE, profits up"))
	assert.Equal(t, 0, lex.Score("Quarterly report released"))
	assert.Equal(t, -6, lex.Score("Markets crash on recession."))
	assert.Equal(t, -2, lex.Score("Company does not beat estimates"))
}

func TestLexiconCustomWords(t *testing.T) {
	lex := NewLexicon(map[string]int{"Moon": 4})
	assert.Equal(t, []float64{4, -4, 0}, lex.ScoreAll([]string{"to the moon", "never moon", ""}))
}

func newsServer(t *testing.T, hits *int32, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		assert.Equal(t, "/v2/everything", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))
		assert.Equal(t, "apple", r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

const twoArticles = `{"status":"ok","articles":[
	{"title":"Apple shares surge","url":"u1","publishedAt":"2024-05-01T10:00:00Z"},
	{"title":"Apple faces lawsuit","url":"u2","publishedAt":"2024-05-01T09:00:00Z"},
	{"title":"","url":"u3","publishedAt":"2024-05-01T08:00:00Z"}
]}`

func TestNewsClientHeadlines(t *testing.T) {
	var hits int32
	srv := newsServer(t, &hits, http.StatusOK, twoArticles)
	c := NewNewsClient(NewsConfig{BaseURL: srv.URL, APIKey: "secret"})

	titles, err := c.Headlines(context.Background(), "apple")
	require.NoError(t, err)
	assert.Equal(t, []string{"Apple shares surge", "Apple faces lawsuit"}, titles)
}

func TestNewsClientRetriesServerErrors(t *testing.T) {
	var hits int32
	srv := newsServer(t, &hits, http.StatusBadGateway, `{}`)
	c := NewNewsClient(NewsConfig{BaseURL: srv.URL, APIKey: "secret", Attempts: 3})

	_, err := c.Headlines(context.Background(), "apple")
	require.Error(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestNewsClientDoesNotRetryClientErrors(t *testing.T) {
	var hits int32
	srv := newsServer(t, &hits, http.StatusUnauthorized, `{"status":"error","code":"apiKeyInvalid"}`)
	c := NewNewsClient(NewsConfig{BaseURL: srv.URL, APIKey: "secret", Attempts: 3})

	_, err := c.Headlines(context.Background(), "apple")
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestNewsClientRequiresKey(t *testing.T) {
	_, err := NewNewsClient(NewsConfig{}).Headlines(context.Background(), "apple")
	require.Error(t, err)
}

func TestServiceCachesScores(t *testing.T) {
	var hits int32
	srv := newsServer(t, &hits, http.StatusOK, twoArticles)
	svc := NewService(NewNewsClient(NewsConfig{BaseURL: srv.URL, APIKey: "secret"}), nil, time.Minute, nil)

	scores, err := svc.Scores(context.Background(), "apple")
	require.NoError(t, err)
	assert.Equal(t, []float64{3, -2}, scores)

	again, err := svc.Scores(context.Background(), " Apple ")
	require.NoError(t, err)
	assert.Equal(t, scores, again)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	empty, err := svc.Scores(context.Background(), "  ")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

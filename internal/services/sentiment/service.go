package sentiment

import (
	"context"
	"strings"
	"time"

	domsvc "github.com/antonbeski0/Predflux/internal/domain/service"
	"github.com/antonbeski0/Predflux/internal/service/cache"
	applogger "github.com/antonbeski0/Predflux/pkg/logger"
)

// HeadlineSource supplies recent headlines for a query.
type HeadlineSource interface {
	Headlines(ctx context.Context, query string) ([]string, error)
}

// Service scores headlines per query and caches the scores.
type Service struct {
	news  HeadlineSource
	lex   *Lexicon
	cache *cache.TTLCache[[]float64]
	ttl   time.Duration
	l     *applogger.Logger
}

var _ domsvc.SentimentSource = (*Service)(nil)

func NewService(news HeadlineSource, lex *Lexicon, ttl time.Duration, l *applogger.Logger) *Service {
	if lex == nil {
		lex = DefaultLexicon()
	}
	if l == nil {
		l = applogger.NewNop()
	}
	return &Service{news: news, lex: lex, cache: cache.NewTTLCache[[]float64](), ttl: ttl, l: l}
}

// Scores returns one score per headline matching query. An empty query
// yields no scores, which averages to a neutral 0.
func (s *Service) Scores(ctx context.Context, query string) ([]float64, error) {
	key := strings.ToLower(strings.TrimSpace(query))
	if key == "" {
		return nil, nil
	}
	if v, ok := s.cache.Get(key); ok {
		return v, nil
	}
	titles, err := s.news.Headlines(ctx, query)
	if err != nil {
		return nil, err
	}
	scores := s.lex.ScoreAll(titles)
	s.cache.Set(key, scores, s.ttl)
	s.l.Debug("sentiment scored",
		applogger.String("query", query),
		applogger.Int("headlines", len(titles)),
	)
	return scores, nil
}

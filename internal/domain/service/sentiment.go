package service

import "context"

// SentimentSource returns one sentiment score per recent headline for a query.
type SentimentSource interface {
	Scores(ctx context.Context, query string) ([]float64, error)
}

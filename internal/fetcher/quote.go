package fetcher

import (
	"context"
	"errors"
)

// ErrEmptyResponse marks a fetch that completed without a usable body.
var ErrEmptyResponse = errors.New("fetcher: empty response body")

// QuoteFetcher retrieves the raw quote text for one symbol.
type QuoteFetcher interface {
	FetchQuote(ctx context.Context, symbol string) (string, error)
}

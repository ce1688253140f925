// Package pricefeed queries the external USD price oracle. Quotes are scaled
// to the working precision on the way in; the rest of the system never sees
// the oracle's decimal strings.
package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"time"

	"github.com/Rican7/retry"
	"github.com/Rican7/retry/strategy"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/axiomesh/axiom-farm/pkg/fixedpoint"
	"github.com/axiomesh/axiom-farm/pkg/loggers"
	"github.com/axiomesh/axiom-farm/pkg/maybe"
	"github.com/axiomesh/axiom-farm/pkg/repo"
)

const (
	fetchAttempts = 3
	retryWait     = 200 * time.Millisecond
)

// ErrUnavailable means the oracle answered but has no quote for the symbol.
var ErrUnavailable = errors.New("pricefeed: price unavailable")

type cachedQuote struct {
	price     *big.Int
	fetchedAt time.Time
}

type Feed struct {
	endpoint string
	client   *http.Client
	cache    *lru.Cache[string, cachedQuote]
	ttl      time.Duration
	logger   logrus.FieldLogger
}

func New(cfg repo.PriceFeed) (*Feed, error) {
	size := cfg.CacheSize
	if size <= 0 {
		size = 16
	}
	cache, err := lru.New[string, cachedQuote](size)
	if err != nil {
		return nil, errors.Wrap(err, "build quote cache")
	}
	return &Feed{
		endpoint: cfg.Endpoint,
		client:   &http.Client{Timeout: cfg.Timeout.ToDuration()},
		cache:    cache,
		ttl:      cfg.CacheTTL.ToDuration(),
		logger:   loggers.Logger(loggers.PriceFeed),
	}, nil
}

// PriceByTokenSymbol returns the USD price at working precision. A fresh
// cached quote short-circuits the oracle; a failed fetch serves the stale
// quote if one exists, so a feed blip degrades to stale rather than absent.
func (f *Feed) PriceByTokenSymbol(ctx context.Context, symbol string) maybe.Value[*big.Int] {
	if q, ok := f.cache.Get(symbol); ok && time.Since(q.fetchedAt) < f.ttl {
		return maybe.Known(q.price)
	}

	var price *big.Int
	err := retry.Retry(func(attempt uint) error {
		p, err := f.fetch(ctx, symbol)
		if err != nil {
			return err
		}
		price = p
		return nil
	}, strategy.Limit(fetchAttempts), strategy.Wait(retryWait))
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			return maybe.Unknown[*big.Int]()
		}
		if q, ok := f.cache.Get(symbol); ok {
			f.logger.WithError(err).Warnf("price fetch for %s failed, serving stale quote", symbol)
			return maybe.Known(q.price)
		}
		f.logger.WithError(err).Warnf("price fetch for %s failed", symbol)
		return maybe.Errored[*big.Int](err)
	}

	f.cache.Add(symbol, cachedQuote{price: price, fetchedAt: time.Now()})
	return maybe.Known(price)
}

type quoteResponse struct {
	Symbol   string `json:"symbol"`
	PriceUSD string `json:"priceUsd"`
}

func (f *Feed) fetch(ctx context.Context, symbol string) (*big.Int, error) {
	u := fmt.Sprintf("%s/v1/price?symbol=%s", f.endpoint, url.QueryEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build price request")
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "query price for %s", symbol)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrUnavailable
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("price oracle returned %d for %s", resp.StatusCode, symbol)
	}

	var qr quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&qr); err != nil {
		return nil, errors.Wrap(err, "decode price response")
	}
	if qr.PriceUSD == "" {
		return nil, ErrUnavailable
	}
	return fixedpoint.FromDecimalString(qr.PriceUSD, fixedpoint.WorkingDecimals)
}

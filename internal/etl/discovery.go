package etl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BartekS5/steampulse/pkg/logger"
	"github.com/BartekS5/steampulse/pkg/models"
	"github.com/BartekS5/steampulse/pkg/utils"
)

// DiscoveryOptions holds the pacing knobs of the discovery stage.
type DiscoveryOptions struct {
	PageDelay           time.Duration
	StatusRetryDelay    time.Duration
	TransportRetryDelay time.Duration
	// MaxRetries caps consecutive failures on one page. 0 retries forever.
	MaxRetries int
}

// Discovery walks the search pages until it has enough identifiers, then persists them once.
type Discovery struct {
	Source SearchSource
	Store  IdentifierStore
	Opts   DiscoveryOptions
	Sleep  SleepFunc
}

func NewDiscovery(src SearchSource, store IdentifierStore, opts DiscoveryOptions) *Discovery {
	return &Discovery{
		Source: src,
		Store:  store,
		Opts:   opts,
		Sleep:  Sleep,
	}
}

// idIndex keeps discovery order while answering membership in O(1).
type idIndex struct {
	seen  map[models.AppID]struct{}
	order []models.AppID
}

func newIDIndex() *idIndex {
	return &idIndex{seen: make(map[models.AppID]struct{})}
}

func (x *idIndex) add(id models.AppID) bool {
	if _, ok := x.seen[id]; ok {
		return false
	}
	x.seen[id] = struct{}{}
	x.order = append(x.order, id)
	return true
}

func (x *idIndex) len() int { return len(x.order) }

// Discover returns the first target identifiers. When the store already holds that
// many, no request is made.
func (d *Discovery) Discover(ctx context.Context, target int) ([]models.AppID, error) {
	if target < 0 {
		target = 0
	}

	existing, err := d.Store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load identifier store: %w", err)
	}
	if len(existing) >= target {
		logger.Info("identifier store already complete, skipping discovery", "stored", len(existing), "target", target)
		return existing[:target], nil
	}
	if len(existing) > 0 {
		logger.Warn("identifier store below target, rediscovering from page 1", "stored", len(existing), "target", target)
	}

	index := newIDIndex()
	page := 1
	for index.len() < target {
		tokens, err := d.fetchPage(ctx, page)
		if err != nil {
			return nil, err
		}

		parsed, added := 0, 0
		for _, tok := range tokens {
			id, err := utils.ParseAppID(tok)
			if err != nil {
				logger.Warn("discarding unparseable identifier", "page", page, "token", tok, "error", fmt.Errorf("%w: %v", models.ErrFormat, err))
				continue
			}
			parsed++
			if index.add(id) {
				added++
			}
		}

		if parsed == 0 {
			logger.Info("search page returned no identifiers, stopping", "page", page)
			break
		}

		logger.Info("discovered page", "page", page, "new", added, "total", index.len())
		page++

		if index.len() < target {
			if err := d.sleep(ctx, d.Opts.PageDelay); err != nil {
				return nil, err
			}
		}
	}

	ids := index.order
	if err := d.Store.Save(ctx, ids); err != nil {
		return nil, fmt.Errorf("save identifier store: %w", err)
	}
	logger.Info("discovery finished", "total", len(ids), "pages", page-1)

	if len(ids) > target {
		ids = ids[:target]
	}
	return ids, nil
}

// fetchPage retries the same page until it answers, the context ends or the retry cap is hit.
func (d *Discovery) fetchPage(ctx context.Context, page int) ([]string, error) {
	failures := 0
	for {
		tokens, err := d.Source.SearchPage(ctx, page)
		if err == nil {
			return tokens, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		failures++
		if d.Opts.MaxRetries > 0 && failures >= d.Opts.MaxRetries {
			return nil, fmt.Errorf("%w: page %d after %d attempts: %w", ErrRetriesExhausted, page, failures, err)
		}

		delay := d.Opts.TransportRetryDelay
		if errors.Is(err, models.ErrUnexpectedStatus) {
			delay = d.Opts.StatusRetryDelay
		}
		logger.Warn("search page failed, retrying", "page", page, "attempt", failures, "delay", delay, "error", err)

		if err := d.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

func (d *Discovery) sleep(ctx context.Context, dur time.Duration) error {
	if d.Sleep == nil {
		return Sleep(ctx, dur)
	}
	return d.Sleep(ctx, dur)
}

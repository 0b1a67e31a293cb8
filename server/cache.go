package server

import (
	"time"

	"github.com/aluiziolira/sitemap-explorer/models"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// reportCache keeps recent successful reports keyed by normalized origin.
// A nil cache is valid and never hits.
type reportCache struct {
	lru *expirable.LRU[string, *models.Report]
}

func newReportCache(size int, ttl time.Duration) *reportCache {
	if size <= 0 {
		return nil
	}
	return &reportCache{lru: expirable.NewLRU[string, *models.Report](size, nil, ttl)}
}

func (c *reportCache) get(origin string) (*models.Report, bool) {
	if c == nil {
		return nil, false
	}
	return c.lru.Get(origin)
}

func (c *reportCache) add(origin string, report *models.Report) {
	if c == nil {
		return
	}
	c.lru.Add(origin, report)
}

func (c *reportCache) size() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}

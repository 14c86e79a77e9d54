package service

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// HolidayYearCache memoizes the expanded holiday-date set per calendar year so
// the calculator does not re-derive recurring holidays on every day comparison.
// Invalidated by the holiday service on any calendar write.
type HolidayYearCache struct {
	years *lru.Cache[int, map[time.Time]struct{}]
}

func NewHolidayYearCache(size int) *HolidayYearCache {
	// lru.New only errors on size <= 0.
	cache, err := lru.New[int, map[time.Time]struct{}](size)
	if err != nil {
		panic(err)
	}
	return &HolidayYearCache{years: cache}
}

func (c *HolidayYearCache) get(year int) (map[time.Time]struct{}, bool) {
	if c == nil {
		return nil, false
	}
	return c.years.Get(year)
}

func (c *HolidayYearCache) add(year int, dates map[time.Time]struct{}) {
	if c == nil {
		return
	}
	c.years.Add(year, dates)
}

// InvalidateYear drops the cached set for one year (one-time holiday changed).
func (c *HolidayYearCache) InvalidateYear(year int) {
	if c == nil {
		return
	}
	c.years.Remove(year)
}

// InvalidateAll drops every cached year (recurring holiday changed).
func (c *HolidayYearCache) InvalidateAll() {
	if c == nil {
		return
	}
	c.years.Purge()
}

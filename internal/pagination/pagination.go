// Package pagination windows an ordered post collection into fixed-size
// pages. Page numbers are 1-based; out-of-range requests clamp to the
// nearest valid page instead of failing.
package pagination

import (
	"strconv"

	"microblog/internal/models"
)

const PerPage = 10

type Page struct {
	Posts    []models.Post
	Number   int
	NumPages int
	Total    int
}

// New computes the page window for a collection of total items. An empty
// collection yields a single empty page.
func New(total, requested int) Page {
	pages := (total + PerPage - 1) / PerPage
	if pages < 1 {
		pages = 1
	}
	n := requested
	if n < 1 {
		n = 1
	}
	if n > pages {
		n = pages
	}
	return Page{Number: n, NumPages: pages, Total: total}
}

func (p Page) Offset() int { return (p.Number - 1) * PerPage }

func (p Page) HasNext() bool { return p.Number < p.NumPages }
func (p Page) HasPrev() bool { return p.Number > 1 }

func (p Page) Next() int { return p.Number + 1 }
func (p Page) Prev() int { return p.Number - 1 }

// FromQuery parses the page query parameter, defaulting to 1 when the
// value is absent or not a positive integer.
func FromQuery(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

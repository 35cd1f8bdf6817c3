// Package pagination turns untrusted page/limit query parameters into a
// bounded window and builds the response envelope that goes with it.
//
// Two entry points exist on purpose. Normalize never fails and degrades bad
// input to defaults; internal callers use it. Validate is strict and reports
// every violation at once; the HTTP middleware uses it to reject a request
// with a 400 before any data access happens.
package pagination

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
)

const (
	DefaultLimit    = 10
	DefaultMaxLimit = 100
)

// Options configures normalization bounds.
type Options struct {
	MaxLimit     int
	DefaultLimit int
}

// DefaultOptions returns {MaxLimit: 100, DefaultLimit: 10}.
func DefaultOptions() Options {
	return Options{MaxLimit: DefaultMaxLimit, DefaultLimit: DefaultLimit}
}

func (o Options) withDefaults() Options {
	if o.MaxLimit < 1 {
		o.MaxLimit = DefaultMaxLimit
	}
	if o.DefaultLimit < 1 {
		o.DefaultLimit = DefaultLimit
	}
	return o
}

// Params is a normalized window. Skip is always (Page-1)*Limit.
type Params struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Skip  int `json:"skip"`
}

// Normalize parses page and limit from q. It never fails: a missing,
// non-numeric or non-positive page becomes 1; a missing, non-numeric or
// non-positive limit becomes DefaultLimit; limit is then capped at MaxLimit.
// A page so large that the skip would overflow is capped as well.
func Normalize(q url.Values, opts Options) Params {
	opts = opts.withDefaults()

	page, err := strconv.Atoi(q.Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil || limit < 1 {
		limit = opts.DefaultLimit
	}
	limit = min(limit, opts.MaxLimit)
	page = min(page, maxPage(limit))

	return Params{Page: page, Limit: limit, Skip: (page - 1) * limit}
}

// maxPage is the largest page whose page*limit still fits in an int.
func maxPage(limit int) int {
	if limit < 1 {
		return math.MaxInt
	}
	return math.MaxInt / limit
}

// Validation is the outcome of the strict check.
type Validation struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors"`
}

// Validate checks page >= 1, limit >= 1 and limit <= maxLimit, collecting
// all violations instead of stopping at the first one. A page whose offset
// cannot be represented is reported as too large.
func Validate(page, limit, maxLimit int) Validation {
	errs := []string{}
	if page < 1 {
		errs = append(errs, "Page must be greater than 0")
	}
	if limit < 1 {
		errs = append(errs, "Limit must be greater than 0")
	}
	if limit > maxLimit {
		errs = append(errs, fmt.Sprintf("Limit cannot exceed %d", maxLimit))
	}
	if page > maxPage(limit) {
		errs = append(errs, "Page is too large")
	}
	return Validation{IsValid: len(errs) == 0, Errors: errs}
}

// Meta is the pagination block of a list response.
type Meta struct {
	Page        int  `json:"page"`
	Limit       int  `json:"limit"`
	Total       int  `json:"total"`
	TotalPages  int  `json:"totalPages"`
	HasNextPage bool `json:"hasNextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
}

// Result pairs one page of data with its metadata.
type Result[T any] struct {
	Data       []T  `json:"data"`
	Pagination Meta `json:"pagination"`
}

// NewMeta computes TotalPages = ceil(total/limit) and the two derived flags.
func NewMeta(total, page, limit int) Meta {
	totalPages := 0
	if limit > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(limit)))
	}
	return Meta{
		Page:        page,
		Limit:       limit,
		Total:       total,
		TotalPages:  totalPages,
		HasNextPage: page < totalPages,
		HasPrevPage: page > 1,
	}
}

// NewResult builds the envelope for one page. A nil data slice is replaced
// by an empty one so it serializes as [].
func NewResult[T any](data []T, total, page, limit int) Result[T] {
	if data == nil {
		data = []T{}
	}
	return Result[T]{Data: data, Pagination: NewMeta(total, page, limit)}
}

// Range is a 1-indexed "showing Start-End of Total" window.
type Range struct {
	Start int `json:"startIndex"`
	End   int `json:"endIndex"`
	Total int `json:"total"`
}

// DisplayRange returns Start = (page-1)*limit+1 and End = min(page*limit, total).
// Page is clamped to [1, maxPage(limit)].
func DisplayRange(page, limit, total int) Range {
	page = max(1, min(page, maxPage(limit)))
	return Range{
		Start: (page-1)*limit + 1,
		End:   min(page*limit, total),
		Total: total,
	}
}

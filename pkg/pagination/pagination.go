package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
	MinLimit     = 1
)

// Params holds validated pagination parameters
type Params struct {
	Page   int `json:"page"`
	Limit  int `json:"limit"`
	Offset int `json:"-"`
}

// Page is one window of a list plus the size of the whole list
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Params
}

// Parse extracts and validates page/limit from query parameters
func Parse(c *gin.Context) Params {
	page, _ := strconv.Atoi(c.DefaultQuery("page", strconv.Itoa(DefaultPage)))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultLimit)))

	if page < 1 {
		page = DefaultPage
	}
	if limit < MinLimit {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	return Params{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}

// Slice cuts the window described by p out of items. Pages past the end are empty.
func Slice[T any](items []T, p Params) Page[T] {
	start := min(p.Offset, len(items))
	end := min(start+p.Limit, len(items))
	window := make([]T, end-start)
	copy(window, items[start:end])
	return Page[T]{Items: window, Total: len(items), Params: p}
}

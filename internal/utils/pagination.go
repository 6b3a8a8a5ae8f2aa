// internal/utils/pagination.go
package utils

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
)

type PageParams struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// PageMeta describes one page of a listing. There is no total count; the
// store is asked for one extra row to learn whether another page exists.
type PageMeta struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasNext  bool `json:"has_next"`
	HasPrev  bool `json:"has_prev"`
}

func GetPageParams(c *gin.Context) PageParams {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.Query("page_size"))
	if size == 0 {
		size, _ = strconv.Atoi(c.Query("limit"))
	}
	return PageParams{Page: page, PageSize: size}
}

// Normalize applies defaults and clamps the page size to maxSize. The page
// number is capped so that the offset plus one look-ahead row stays in range.
func (p PageParams) Normalize(defaultSize, maxSize int) PageParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = defaultSize
	}
	if p.PageSize > maxSize {
		p.PageSize = maxSize
	}
	if lastPage := (math.MaxInt - 1) / p.PageSize; p.Page > lastPage {
		p.Page = lastPage
	}
	return p
}

func (p PageParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Trim cuts a result fetched with PageSize+1 rows down to the page and
// reports the page metadata.
func Trim[T any](items []T, p PageParams) ([]T, PageMeta) {
	meta := PageMeta{Page: p.Page, PageSize: p.PageSize, HasPrev: p.Page > 1}
	if len(items) > p.PageSize {
		items = items[:p.PageSize]
		meta.HasNext = true
	}
	return items, meta
}

func SetPaginationHeaders(c *gin.Context, meta PageMeta) {
	c.Header("X-Page", strconv.Itoa(meta.Page))
	c.Header("X-Per-Page", strconv.Itoa(meta.PageSize))
	c.Header("X-Has-Next", strconv.FormatBool(meta.HasNext))
}

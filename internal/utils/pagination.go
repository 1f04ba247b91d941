package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/auratask/internal/constants"
)

// PageParams is a 1-based page request.
type PageParams struct {
	Page     int
	PageSize int
}

// Offset is the number of rows to skip.
func (p PageParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// GetPageParams reads ?page= and ?page_size= (or the older ?limit=). Missing
// or out-of-range values fall back to the first page of the default size.
func GetPageParams(c *gin.Context) PageParams {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page < 1 {
		page = 1
	}

	raw := c.Query("page_size")
	if raw == "" {
		raw = c.Query("limit")
	}
	size, err := strconv.Atoi(raw)
	if err != nil || size < constants.MinPageSize || size > constants.MaxPageSize {
		size = constants.DefaultPageSize
	}

	return PageParams{Page: page, PageSize: size}
}

// TotalPages is the page count needed for total rows, at least 1.
func TotalPages(total int64, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 1
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}

package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/studiolens/core/internal/pkg/response"
	"gorm.io/gorm"
)

const (
	DefaultPage  = 1
	DefaultSize  = 10
	DefaultLimit = 20
	MaxSize      = 100
)

// Query holds parsed pagination parameters. Skip is the exact row offset;
// Page is the display page derived from it and only feeds the response
// metadata.
type Query struct {
	Page int
	Size int
	Skip int
}

// FromContext extracts and validates page/size pagination params.
func FromContext(c *gin.Context) Query {
	page := parseIntOr(c.DefaultQuery("page", "1"), DefaultPage)
	size := parseIntOr(c.DefaultQuery("size", "10"), DefaultSize)

	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultSize
	}
	if size > MaxSize {
		size = MaxSize
	}

	return Query{Page: page, Size: size, Skip: (page - 1) * size}
}

// FromLimitSkip extracts limit/skip pagination params, the form the
// mini-program clients page with (limit defaults to 20, skip to 0). The skip
// is carried exactly; it is not rounded to a page boundary.
func FromLimitSkip(c *gin.Context) Query {
	limit := parseIntOr(c.DefaultQuery("limit", "20"), DefaultLimit)
	skip := parseIntOr(c.DefaultQuery("skip", "0"), 0)

	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxSize {
		limit = MaxSize
	}
	if skip < 0 {
		skip = 0
	}

	return Query{Page: skip/limit + 1, Size: limit, Skip: skip}
}

// Offset returns the exact row offset for the query.
func (q Query) Offset() int { return q.Skip }

// Paginate applies limit/offset to a GORM query and returns the pagination
// metadata. The count runs as a separate query with the same filter; it can be
// stale relative to the page under concurrent writes, which is acceptable for
// a browsing UI.
func Paginate[T any](db *gorm.DB, q Query, dest *[]T) (response.Pagination, error) {
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return response.Pagination{}, err
	}

	if err := db.Offset(q.Offset()).Limit(q.Size).Find(dest).Error; err != nil {
		return response.Pagination{}, err
	}

	totalPage := int((total + int64(q.Size) - 1) / int64(q.Size))

	return response.Pagination{
		Total:       total,
		CurrentPage: q.Page,
		TotalPage:   totalPage,
		Size:        q.Size,
		HasNextPage: int64(q.Skip+q.Size) < total,
	}, nil
}

func parseIntOr(s string, def int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

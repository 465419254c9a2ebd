package api

import (
	"fmt"
	"math"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

const (
	defaultPageSize = 6
	maxPageSize     = 100

	// maxPage keeps page*limit within int32
	maxPage = math.MaxInt32 / maxPageSize
)

// fail hands err to the error middleware
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
}

// bindJSON decodes the body into req, reporting failures as bind errors
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		_ = c.Error(err).SetType(gin.ErrorTypeBind)
		return false
	}
	return true
}

// pathID parses a uuid path parameter. A malformed id cannot match any row
// and is reported as not found.
func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		fail(c, fmt.Errorf("%s %q: %w", name, c.Param(name), service.ErrNotFound))
		return uuid.Nil, false
	}
	return id, true
}

func queryInt(c *gin.Context, key string, fallback int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return fallback
	}
	return n
}

func queryFlag(c *gin.Context, key string) bool {
	switch c.Query(key) {
	case "1", "true", "True":
		return true
	}
	return false
}

func pagination(c *gin.Context) service.Pagination {
	page := queryInt(c, "page", 1)
	if page < 1 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}
	limit := queryInt(c, "limit", defaultPageSize)
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return service.Pagination{Page: page, Limit: limit}
}

// pageURL is the absolute URL of the current request with page replaced
func pageURL(c *gin.Context, page int) *string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	q := c.Request.URL.Query()
	q.Set("page", strconv.Itoa(page))
	u := url.URL{Scheme: scheme, Host: c.Request.Host, Path: c.Request.URL.Path, RawQuery: q.Encode()}
	s := u.String()
	return &s
}

func newPage[T any](c *gin.Context, p service.Pagination, total int64, results []T) types.Page[T] {
	page := types.Page[T]{Count: total, Results: results}
	if page.Results == nil {
		page.Results = []T{}
	}
	if int64(p.Page*p.Limit) < total {
		page.Next = pageURL(c, p.Page+1)
	}
	if p.Page > 1 {
		page.Previous = pageURL(c, p.Page-1)
	}
	return page
}

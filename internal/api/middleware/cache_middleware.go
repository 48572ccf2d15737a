package middleware

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/habitquest/backend/internal/infrastructure/cache"
)

type CacheMiddleware struct {
	cache  *cache.Client
	prefix string
	ttl    time.Duration
}

func NewCacheMiddleware(c *cache.Client, prefix string, ttl time.Duration) *CacheMiddleware {
	return &CacheMiddleware{
		cache:  c,
		prefix: prefix,
		ttl:    ttl,
	}
}

type cachedResponse struct {
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// responseBuffer tees everything written to the client.
type responseBuffer struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func newResponseBuffer(original gin.ResponseWriter) *responseBuffer {
	return &responseBuffer{
		ResponseWriter: original,
		body:           &bytes.Buffer{},
	}
}

func (r *responseBuffer) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseBuffer) WriteString(s string) (int, error) {
	r.body.WriteString(s)
	return r.ResponseWriter.WriteString(s)
}

// CacheResponse serves GET responses from the cache and stores successful
// ones. Responses are scoped per user when the caller is authenticated.
func (m *CacheMiddleware) CacheResponse() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := m.cacheKey(c)
		var hit cachedResponse
		if m.cache.Get(c.Request.Context(), key, &hit) {
			c.Header("X-Cache", "HIT")
			c.Data(http.StatusOK, hit.ContentType, hit.Body)
			c.Abort()
			return
		}

		writer := c.Writer
		buff := newResponseBuffer(writer)
		c.Writer = buff
		c.Header("X-Cache", "MISS")

		c.Next()

		if buff.Status() == http.StatusOK {
			m.cache.Set(c.Request.Context(), key, cachedResponse{
				ContentType: buff.Header().Get("Content-Type"),
				Body:        buff.body.Bytes(),
			}, m.ttl)
		}
		c.Writer = writer
	}
}

// CacheInvalidate drops cached pages matching patterns after a successful
// write. Patterns are relative to this middleware's prefix.
func (m *CacheMiddleware) CacheInvalidate(patterns ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Status() >= 200 && c.Writer.Status() < 300 {
			for _, pattern := range patterns {
				m.cache.DeleteByPattern(c.Request.Context(), cache.Key(m.prefix, pattern))
			}
		}
	}
}

func (m *CacheMiddleware) cacheKey(c *gin.Context) string {
	parts := []interface{}{m.prefix, strings.Trim(c.Request.URL.Path, "/")}
	if q := c.Request.URL.RawQuery; q != "" {
		parts = append(parts, q)
	}
	if userID, ok := GetUserID(c); ok {
		parts = append(parts, userID)
	}
	return cache.Key(parts...)
}

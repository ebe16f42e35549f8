package http

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/herbario-app/herbario/internal/apperr"
)

// stateChanging reports whether a method can mutate server state.
func stateChanging(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	default:
		return true
	}
}

// originSet is an origin allow-list with exact string membership.
type originSet map[string]struct{}

func newOriginSet(origins []string) originSet {
	set := make(originSet, len(origins))
	for _, origin := range origins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin != "" {
			set[origin] = struct{}{}
		}
	}
	return set
}

func (s originSet) contains(origin string) bool {
	_, ok := s[strings.TrimRight(strings.TrimSpace(origin), "/")]
	return ok
}

// CORS enforces the explicit origin allow-list. Same-origin requests carry
// no Origin header and pass through; cross-origin requests from outside the
// set are rejected outright.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	allowed := newOriginSet(allowedOrigins)
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Next()
			return
		}
		if !allowed.contains(origin) {
			Fail(c, apperr.Forbidden("origin not allowed"))
			return
		}

		header := c.Writer.Header()
		header.Set("Access-Control-Allow-Origin", origin)
		header.Add("Vary", "Origin")
		header.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		header.Set("Access-Control-Max-Age", "600")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// CSRFOriginCheck verifies, independently of CORS, that state-changing
// requests come from an allow-listed origin. The Origin header wins when
// present; otherwise the Referer's origin is checked; a request carrying
// neither is rejected.
func CSRFOriginCheck(allowedOrigins []string) gin.HandlerFunc {
	allowed := newOriginSet(allowedOrigins)
	return func(c *gin.Context) {
		if !stateChanging(c.Request.Method) {
			c.Next()
			return
		}

		if origin := c.GetHeader("Origin"); origin != "" {
			if !allowed.contains(origin) {
				Fail(c, apperr.Forbidden("origin not allowed"))
				return
			}
			c.Next()
			return
		}

		referer := c.GetHeader("Referer")
		if referer == "" {
			Fail(c, apperr.Forbidden("origin verification failed"))
			return
		}
		parsed, errParse := url.Parse(referer)
		if errParse != nil || parsed.Scheme == "" || parsed.Host == "" {
			Fail(c, apperr.Forbidden("referer not parsable"))
			return
		}
		if !allowed.contains(parsed.Scheme + "://" + parsed.Host) {
			Fail(c, apperr.Forbidden("referer not allowed"))
			return
		}
		c.Next()
	}
}

// SecurityHeaders applies the response header policy. HSTS is emitted only
// in production, where TLS termination is guaranteed.
func SecurityHeaders(production bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.Writer.Header()
		header.Set("X-Content-Type-Options", "nosniff")
		header.Set("X-Frame-Options", "SAMEORIGIN")
		header.Set("Referrer-Policy", "no-referrer")
		header.Set("Cross-Origin-Opener-Policy", "same-origin")
		header.Set("Cross-Origin-Resource-Policy", "same-origin")
		if production {
			// 180 days.
			header.Set("Strict-Transport-Security", "max-age=15552000; includeSubDomains")
		}
		c.Next()
	}
}

// HTTPSRedirect issues a permanent redirect for plain-HTTP requests. Only
// active in production; the forwarded protocol is honored when the process
// runs behind a trusted proxy.
func HTTPSRedirect(production, trustProxy bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !production {
			c.Next()
			return
		}
		secure := c.Request.TLS != nil
		if !secure && trustProxy {
			secure = strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https")
		}
		if secure {
			c.Next()
			return
		}
		target := "https://" + c.Request.Host + c.Request.URL.RequestURI()
		c.Redirect(http.StatusMovedPermanently, target)
		c.Abort()
	}
}

// BodyLimit caps request bodies, rejecting oversized payloads before any
// handler reads them.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			Fail(c, apperr.New(http.StatusRequestEntityTooLarge, apperr.CodePayloadTooLarge, "payload too large"))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/csrf"
)

const (
	csrfCookieName = "givehub_csrf"
	CSRFFieldName  = "csrf_token"
)

// CSRF adapts gorilla/csrf to gin. Every unsafe method must carry the
// token from the rendered form.
func CSRF(key []byte, secure bool) gin.HandlerFunc {
	protect := csrf.Protect(key,
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.CookieName(csrfCookieName),
		csrf.FieldName(CSRFFieldName),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "Forbidden - the form expired, please reload the page and try again", http.StatusForbidden)
		})),
	)

	return func(c *gin.Context) {
		r := c.Request
		if !secure {
			// without this the origin check assumes https
			r = csrf.PlaintextHTTPRequest(r)
		}

		passed := false
		protect(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			passed = true
			c.Request = r
			c.Next()
		})).ServeHTTP(c.Writer, r)

		if !passed {
			c.Abort()
		}
	}
}

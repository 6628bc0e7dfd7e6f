package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/geocoder89/givehub/internal/apiclient"
	"github.com/geocoder89/givehub/internal/guard"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

// backendTimeout bounds every page's backend work.
const backendTimeout = 5 * time.Second

// requestCtx keeps the session id carried on the request context; the
// backend client and the notifier resolve the visitor from it.
func requestCtx(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), backendTimeout)
}

// respondAPIError is the one place a backend auth failure turns into a
// redirect to the login page. The client has already cleared the session
// and queued the notice. It reports whether the response was written.
func respondAPIError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	if apiclient.IsAuth(err) {
		next := c.Request.URL.RequestURI()
		if c.Request.Method != http.MethodGet {
			next = c.Request.URL.Path
		}
		c.Redirect(http.StatusSeeOther, guard.LoginPath+"?next="+url.QueryEscape(next))
		c.Abort()
		return true
	}

	return false
}

// redirect is the post/redirect/get hop after a form.
func redirect(c *gin.Context, to string) {
	c.Redirect(http.StatusSeeOther, to)
}

// errorPage renders a plain error page inside the layout.
func (r *Renderer) errorPage(c *gin.Context, status int, msg string) {
	r.Render(c, status, "error", http.StatusText(status), gin.H{"Status": status, "Message": msg})
}

// fetchAll runs fns concurrently and waits for all of them. The joined
// error keeps every failure visible to respondAPIError.
func fetchAll(fns ...func() error) error {
	errs := make([]error, len(fns))

	var g errgroup.Group
	for i, fn := range fns {
		g.Go(func() error {
			errs[i] = fn()
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

func isNotFound(err error) bool {
	return apiclient.IsStatus(err, http.StatusNotFound)
}

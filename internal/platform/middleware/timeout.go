package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestTimeout bounds each request context. The handler runs on the
// request goroutine and is expected to stop once its context expires;
// anything it writes after the deadline is discarded and the caller gets a
// 504 envelope instead. Probes are exempt.
func RequestTimeout(timeout time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if timeout <= 0 || isProbePath(c.Request().URL.Path) {
				return next(c)
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))

			res := c.Response()
			dw := &deadlineWriter{ResponseWriter: res.Writer, ctx: ctx}
			res.Writer = dw
			err := next(c)
			res.Writer = dw.ResponseWriter

			if dw.started || !errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return err
			}
			// The handler's late response never reached the client.
			res.Committed = false
			res.Status = 0
			res.Size = 0
			return c.JSON(http.StatusGatewayTimeout, errorBody("chart request timed out"))
		}
	}
}

// deadlineWriter drops a response that starts after the request deadline.
// A response already started before the deadline is passed through.
type deadlineWriter struct {
	http.ResponseWriter
	ctx     context.Context
	started bool
}

func (w *deadlineWriter) expired() bool {
	return !w.started && errors.Is(w.ctx.Err(), context.DeadlineExceeded)
}

func (w *deadlineWriter) WriteHeader(code int) {
	if w.started || w.expired() {
		return
	}
	w.started = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *deadlineWriter) Write(b []byte) (int, error) {
	if w.expired() {
		return len(b), nil
	}
	if !w.started {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *deadlineWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok && w.started {
		f.Flush()
	}
}

func (w *deadlineWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

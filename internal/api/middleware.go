package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type middleware func(http.Handler) http.Handler

const (
	requestIDHeader = "X-Request-ID"
	maxRequestIDLen = 64
)

// reqInfo is what withRequest stores in the request context.
type reqInfo struct {
	id     string
	logger *slog.Logger
}

type reqInfoKey struct{}

func infoFrom(ctx context.Context) *reqInfo {
	info, _ := ctx.Value(reqInfoKey{}).(*reqInfo)
	return info
}

func getRequestID(ctx context.Context) string {
	if info := infoFrom(ctx); info != nil {
		return info.id
	}
	return ""
}

// logFor returns the request-scoped logger, or slog.Default outside a request.
func logFor(ctx context.Context) *slog.Logger {
	if info := infoFrom(ctx); info != nil {
		return info.logger
	}
	return slog.Default()
}

// withRequest tags the request with an id (a client X-Request-ID is kept
// when it is short enough) and a logger carrying it.
func withRequest(base *slog.Logger) middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(requestIDHeader)
			if id == "" || len(id) > maxRequestIDLen {
				id = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, id)
			info := &reqInfo{id: id, logger: base.With("rid", id)}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), reqInfoKey{}, info)))
		})
	}
}

// responseRecorder remembers the status and body size written.
type responseRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (rr *responseRecorder) WriteHeader(code int) {
	if rr.status == 0 {
		rr.status = code
	}
	rr.ResponseWriter.WriteHeader(code)
}

func (rr *responseRecorder) Write(b []byte) (int, error) {
	if rr.status == 0 {
		rr.status = http.StatusOK
	}
	n, err := rr.ResponseWriter.Write(b)
	rr.bytes += n
	return n, err
}

// observe counts every request by status class and writes one access log
// line when the handler returns.
func observe(m *Metrics) middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rr := &responseRecorder{ResponseWriter: w}
			next.ServeHTTP(rr, r)
			if rr.status == 0 {
				rr.status = http.StatusOK
			}

			m.RecordRequest()
			switch {
			case rr.status >= 500:
				m.RecordError()
			case rr.status >= 400:
				m.RecordClientError()
			}
			logFor(r.Context()).Info("req",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rr.status,
				"bytes", rr.bytes,
				"dur", time.Since(start).String(),
			)
		})
	}
}

// recoverPanics turns a handler panic into a 500 error body.
func recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logFor(r.Context()).Error("panic recovered", "panic", rec, "path", r.URL.Path)
				writeError(w, r, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// limitBody caps request bodies at n bytes; n <= 0 means no cap.
func limitBody(n int64) middleware {
	return func(next http.Handler) http.Handler {
		if n <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, n)
			next.ServeHTTP(w, r)
		})
	}
}

// chain wraps h so that mws[0] runs first.
func chain(h http.Handler, mws ...middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

package api

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"contagion-lab/internal/observability"
)

// statusRecorder captures the response code. It forwards Hijack so the
// websocket upgrade keeps working behind the middleware.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.code = code
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rec.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	if rec.code == 0 {
		rec.code = http.StatusSwitchingProtocols
	}
	return h.Hijack()
}

// instrument records request metrics by route template and logs each request.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}

		next.ServeHTTP(rec, r)

		code := rec.code
		if code == 0 {
			code = http.StatusOK
		}
		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}

		observability.RecordHTTPRequest(route, strconv.Itoa(code))
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"route":    route,
			"status":   code,
			"duration": time.Since(start),
		}).Debug("request served")
	})
}

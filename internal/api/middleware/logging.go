package middleware

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"condorledger/internal/metrics"
	"condorledger/pkg/utils"
)

// RequestIDHeader - заголовок идентификатора запроса
const RequestIDHeader = "X-Request-ID"

// responseWriter запоминает статус и размер ответа
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int64
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// Hijack нужен для апгрейда /ws/stream
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return hj.Hijack()
}

// Logging - одна структурированная строка на запрос и наблюдение в гистограмму.
//
// Маршрут в метрике - шаблон gorilla/mux (/api/v1/trades/{symbol}),
// чтобы символы и id не раздували кардинальность.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		route := routeTemplate(r)

		metrics.HTTPRequestDuration.
			WithLabelValues(r.Method, route, strconv.Itoa(wrapped.statusCode)).
			Observe(duration.Seconds())

		fields := []utils.Field{
			utils.Method(r.Method),
			utils.Path(r.URL.Path),
			utils.Route(route),
			utils.StatusCode(wrapped.statusCode),
			utils.Latency(duration),
			utils.RemoteAddr(clientIP(r)),
			utils.RequestID(requestID),
			utils.Int64("bytes", wrapped.written),
		}

		switch {
		case wrapped.statusCode >= 500:
			utils.Error("http request", fields...)
		case wrapped.statusCode >= 400:
			utils.Warn("http request", fields...)
		default:
			utils.Info("http request", fields...)
		}
	})
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

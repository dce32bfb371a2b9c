package middleware

import (
	"net"
	"net/http"

	"condorledger/pkg/crypto"
	"condorledger/pkg/ratelimit"
	"condorledger/pkg/utils"
)

// AdminAuthConfig - параметры защиты /api/v1/admin/*
type AdminAuthConfig struct {
	Username     string
	PasswordHash string // bcrypt
	// AllowUnconfigured пропускает запросы без проверки, если учетные данные не заданы.
	// Включается только в development.
	AllowUnconfigured bool
	// Limiter ограничивает частоту запросов по адресу клиента; nil - без ограничения
	Limiter *ratelimit.KeyedLimiter
}

// AdminAuth - middleware для административных endpoints
//
// Проверки по порядку:
// 1. Частота запросов с адреса клиента (429)
// 2. Учетные данные не настроены: 403, в development пропуск
// 3. HTTP Basic Authentication с bcrypt хешем пароля (401)
//
// Использование:
//
//	admin := api.PathPrefix("/admin").Subrouter()
//	admin.Use(middleware.AdminAuth(cfg))
func AdminAuth(cfg AdminAuthConfig) func(http.Handler) http.Handler {
	creds := crypto.AdminCredentials{Username: cfg.Username, PasswordHash: cfg.PasswordHash}
	configured := creds.Configured()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)

			if cfg.Limiter != nil && !cfg.Limiter.Allow(ip) {
				utils.Warn("admin rate limit exceeded", utils.RemoteAddr(ip), utils.Path(r.URL.Path))
				w.Header().Set("Retry-After", "1")
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}

			if !configured {
				if cfg.AllowUnconfigured {
					next.ServeHTTP(w, r)
					return
				}
				http.Error(w, "Admin endpoints disabled. Set ADMIN_USERNAME and ADMIN_PASSWORD_HASH.", http.StatusForbidden)
				return
			}

			user, pass, ok := r.BasicAuth()
			if !ok {
				unauthorized(w)
				return
			}

			if err := creds.Verify(user, pass); err != nil {
				utils.Warn("admin authentication failed",
					utils.RemoteAddr(ip),
					utils.Username(user),
					utils.Path(r.URL.Path),
				)
				unauthorized(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="condorledger admin"`)
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}

// clientIP возвращает адрес без порта
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

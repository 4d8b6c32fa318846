package middleware

import "net/http"

// RequireSession пропускает запрос дальше, только если authed() == true.
// Иначе отвечает deny: для страниц это редирект на /login, для API - 401.
func RequireSession(authed func() bool, deny http.Handler) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !authed() {
				deny.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

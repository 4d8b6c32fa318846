package middleware

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/pribylovaa/roster-share/internal/apiclient"
)

// RequestID обеспечивает наличие X-Request-Id:
//  1. читает заголовок X-Request-Id, если есть;
//  2. иначе генерирует uuid;
//  3. кладёт id в Response Header, Request Header и в контекст через
//     apiclient.WithRequestID - так он уходит и в исходящие вызовы.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(apiclient.HeaderRequestID)
			if id == "" {
				id = uuid.NewString()
				// добавим в запрос - чтобы errors.WriteError мог его забрать.
				r.Header.Set(apiclient.HeaderRequestID, id)
			}
			w.Header().Set(apiclient.HeaderRequestID, id)

			ctx := apiclient.WithRequestID(r.Context(), id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

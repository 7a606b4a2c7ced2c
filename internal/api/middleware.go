package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

type contextKey string

const accountIdKey contextKey = "account-id"

func AccountId(ctx context.Context) (int, bool) {
	accountId, ok := ctx.Value(accountIdKey).(int)

	return accountId, ok
}

func WithAccountId(ctx context.Context, accountId int) context.Context {
	return context.WithValue(ctx, accountIdKey, accountId)
}

// bearerToken extracts the token from the Authorization header, or
// from the "token" query parameter as a fallback for WebSocket
// handshakes, where browsers cannot set headers.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok && token != "" {
		return token
	}

	return r.URL.Query().Get("token")
}

func (s *App) errorHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				var panicError error
				switch e := err.(type) {
				case error:
					panicError = e
				default:
					panicError = fmt.Errorf("%v", e)
				}
				s.log.Printf("panic: %v", panicError)
				errResp := NewInternalServerError(panicError)
				w.Header().Set("Connection", "close")
				s.writeJson(w, errResp.StatusCode, errResp)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

func (s *App) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			errResp := NewUnauthorizedError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		claims, err := s.tokens.Verify(token)
		if err != nil {
			s.log.Printf("verify token: %v", err)
			errResp := NewUnauthorizedError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		ctx := WithAccountId(r.Context(), claims.Sub)
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")

		next(w, r.WithContext(ctx))
	}
}

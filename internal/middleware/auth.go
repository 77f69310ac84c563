// Package middleware содержит HTTP middleware витрины: аутентификацию,
// сжатие, журналирование запросов и метрики.
package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type contextKey string

const principalKey contextKey = "principal"

const (
	authCookieName = "auth_token"
	authCookieTTL  = 30 * 24 * time.Hour

	roleUser  = "user"
	roleAdmin = "admin"
)

// Principal - пользователь, от имени которого выполняется запрос.
type Principal struct {
	UserID int64
	Admin  bool
}

// AuthMiddleware выполняет проверку аутентификации пользователя по подписанному cookie.
type AuthMiddleware struct {
	secretKey []byte
}

// NewAuthMiddleware создаёт новый экземпляр AuthMiddleware с указанным секретным ключом.
// Без ключа генерируется случайный, и cookie перестают быть действительными после перезапуска.
func NewAuthMiddleware(secret string) *AuthMiddleware {
	key := []byte(secret)
	if len(key) == 0 {
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err == nil {
			key = randomKey
		} else {
			key = []byte("default-secret-key")
		}
	}

	return &AuthMiddleware{
		secretKey: key,
	}
}

// Middleware проверяет cookie авторизации и добавляет пользователя в контекст запроса.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(authCookieName)
		if err != nil {
			writeError(w, http.StatusUnauthorized)
			return
		}

		p, ok := a.parseToken(cookie.Value)
		if !ok {
			writeError(w, http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// RequireAdmin пропускает только администраторов. Используется после Middleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized)
			return
		}
		if !p.Admin {
			writeError(w, http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SetAuthCookie устанавливает cookie авторизации для пользователя.
func (a *AuthMiddleware) SetAuthCookie(w http.ResponseWriter, p Principal) {
	cookie := &http.Cookie{
		Name:     authCookieName,
		Value:    a.sign(p),
		Path:     "/",
		Expires:  time.Now().Add(authCookieTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	http.SetCookie(w, cookie)
}

func (a *AuthMiddleware) sign(p Principal) string {
	role := roleUser
	if p.Admin {
		role = roleAdmin
	}
	payload := strconv.FormatInt(p.UserID, 10) + "." + role
	return payload + "." + a.signature(payload)
}

func (a *AuthMiddleware) signature(payload string) string {
	mac := hmac.New(sha256.New, a.secretKey)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func (a *AuthMiddleware) parseToken(token string) (Principal, bool) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return Principal{}, false
	}

	payload := parts[0] + "." + parts[1]
	if !hmac.Equal([]byte(parts[2]), []byte(a.signature(payload))) {
		return Principal{}, false
	}

	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return Principal{}, false
	}

	switch parts[1] {
	case roleUser:
		return Principal{UserID: id}, true
	case roleAdmin:
		return Principal{UserID: id, Admin: true}, true
	default:
		return Principal{}, false
	}
}

// WithPrincipal кладёт пользователя в контекст.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext извлекает пользователя из контекста запроса.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

// GetUserIDFromContext извлекает идентификатор пользователя из контекста запроса.
func GetUserIDFromContext(ctx context.Context) (int64, bool) {
	p, ok := PrincipalFromContext(ctx)
	return p.UserID, ok
}

// IsAdmin сообщает, выполняется ли запрос администратором.
func IsAdmin(ctx context.Context) bool {
	p, ok := PrincipalFromContext(ctx)
	return ok && p.Admin
}

func writeError(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + strings.ToLower(http.StatusText(status)) + `"}`))
}

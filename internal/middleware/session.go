package middleware

import (
	"context"
	"net/http"
)

const suppressSessionKey contextKey = "suppressSession"

// WithoutSession помечает контекст запроса: обработчики не должны выдавать новую сессию.
// Используется, когда администратор создаёт учётную запись другого пользователя.
func WithoutSession(ctx context.Context) context.Context {
	return context.WithValue(ctx, suppressSessionKey, true)
}

// SessionSuppressed сообщает, запрещена ли выдача сессии для запроса.
func SessionSuppressed(ctx context.Context) bool {
	v, _ := ctx.Value(suppressSessionKey).(bool)
	return v
}

// SuppressSession применяет WithoutSession ко всем запросам группы.
func SuppressSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithoutSession(r.Context())))
	})
}

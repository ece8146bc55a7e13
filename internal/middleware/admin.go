package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

type contextKey string

const AdminKey contextKey = "is_admin"

// AdminPath flags requests whose path contains an /admin/ segment. This is a view
// switch for a single-user app, not access control.
func AdminPath(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		admin := strings.Contains(r.URL.Path+"/", "/admin/")
		ctx := context.WithValue(r.Context(), AdminKey, admin)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// IsAdmin extracts the admin flag from request context
func IsAdmin(ctx context.Context) bool {
	admin, _ := ctx.Value(AdminKey).(bool)
	return admin
}

func writeError(w http.ResponseWriter, status int, code, message string, r *http.Request) {
	requestID := r.Header.Get("X-Request-ID")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{
			"code":       code,
			"message":    message,
			"request_id": requestID,
		},
	})
}

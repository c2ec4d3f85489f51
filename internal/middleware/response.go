package middleware

import (
	"net/http"

	"github.com/rajvir-app/mining-server/internal/httputil"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}

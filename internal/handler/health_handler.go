package handler

import "net/http"

// Health はプロセスが応答可能であることを返す。
// GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

package handler

import "net/http"

// StatusFunc はゲームの現在の状態（"playing"、"won"、"killed"）を返します。
type StatusFunc func() string

func NewHealthHandler(status StatusFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if status != nil {
			_, _ = w.Write([]byte(status()))
		}
	}
}

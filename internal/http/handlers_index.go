package httpx

import (
	"net/http"
	"slices"
)

// indexHandler lists the registered routes.
func indexHandler(routes []string) http.HandlerFunc {
	sorted := slices.Clone(routes)
	slices.Sort(sorted)
	return func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, http.StatusOK, struct {
			Status string   `json:"status"`
			Data   []string `json:"data"`
		}{Status: StatusDone, Data: sorted})
	}
}

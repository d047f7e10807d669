package status

import (
	"net/http"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/mlcocdav/ctfbench/global"
	"github.com/mlcocdav/ctfbench/pkg/eval"
)

func progress(t *eval.Tracker) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var p eval.Progress
		if t != nil {
			p = t.Snapshot()
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(p); err != nil {
			global.Log().Error(r.Context(), "encoding progress", zap.Error(err))
		}
	})
}

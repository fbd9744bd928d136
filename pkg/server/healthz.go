package server

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/grafana/dskit/services"

	"github.com/grafana/retrace/pkg/util"
)

// ReadyHandler answers 200 once every service managed by sm is running.
func ReadyHandler(sm *services.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if !sm.IsHealthy() {
			msg := bytes.Buffer{}
			msg.WriteString("Some services are not Running:\n")

			byState := sm.ServicesByState()
			for st, ls := range byState {
				msg.WriteString(fmt.Sprintf("%v: %d\n", st, len(ls)))
			}

			http.Error(w, msg.String(), http.StatusServiceUnavailable)
			return
		}

		util.WriteTextResponse(w, "ready\n")
	}
}

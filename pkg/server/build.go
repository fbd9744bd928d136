package server

import (
	"net/http"

	"github.com/prometheus/common/version"

	"github.com/grafana/retrace/pkg/util"
)

type buildInfo struct {
	Version   string `json:"version"`
	Revision  string `json:"revision"`
	Branch    string `json:"branch"`
	BuildUser string `json:"buildUser"`
	BuildDate string `json:"buildDate"`
	GoVersion string `json:"goVersion"`
}

func buildHandler(w http.ResponseWriter, _ *http.Request) {
	util.WriteJSONResponse(w, buildInfo{
		Version:   version.Version,
		Revision:  version.Revision,
		Branch:    version.Branch,
		BuildUser: version.BuildUser,
		BuildDate: version.BuildDate,
		GoVersion: version.GoVersion,
	})
}

package osmtrail

import (
	"encoding/json"
	"net/http"

	"github.com/theoremus-urban-solutions/osmtrail/lookup"
	"github.com/theoremus-urban-solutions/osmtrail/utils"
)

type healthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Storage bool              `json:"storage"`
	Caches  lookup.Stats      `json:"caches"`
	Exports lookup.CacheStats `json:"exports"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	resp := healthResponse{
		Status:  "ok",
		Time:    utils.Iso8601Now(),
		Storage: s.svc.Store != nil,
		Caches:  s.svc.Lookup.Stats(),
		Exports: s.svc.exports.Stats(),
	}
	_ = json.NewEncoder(w).Encode(resp)
}

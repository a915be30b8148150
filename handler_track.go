package osmtrail

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/theoremus-urban-solutions/osmtrail/formatter"
)

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind, status := errorKind(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	} else {
		s.logger.Debug("request rejected", zap.String("path", r.URL.Path), zap.Int("status", status), zap.Error(err))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buildErrorPayload(kind, err.Error()))
}

func (s *Server) handleRelationExport(w http.ResponseWriter, r *http.Request) {
	relationID, err := parseRelationID(r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	format, err := parseExportFile(r.PathValue("file"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	start, err := parseStart(r.URL.Query().Get("start"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	buf, err := s.svc.Export(r.Context(), relationID, start, format)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	if format == formatter.FormatGPX || format == formatter.FormatCSV {
		name := formatter.FileName("", relationID, "", string(format))
		w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	}
	_, _ = w.Write(buf)
}

func (s *Server) handleFindRelations(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		s.writeError(w, r, &QueryError{Msg: "You must provide a name."})
		return
	}
	recs, err := s.svc.FindRelations(r.Context(), name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(recs)
}

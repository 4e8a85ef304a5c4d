package host

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gearxr/gear/internal/handlers"
	"github.com/gearxr/gear/internal/storage"
	"github.com/gearxr/gear/pkg/core"
	"github.com/gorilla/mux"
)

// bootstrap returns the page bundle of a course module: scene config,
// models, hotspots and whether the caller may author.
func (s *Server) bootstrap(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	caller, ok := handlers.CallerFrom(r.Context())
	if !ok {
		http.Error(w, `{"error":"login required"}`, http.StatusUnauthorized)
		return
	}

	cmid, err := strconv.ParseInt(mux.Vars(r)["cmid"], 10, 64)
	if err != nil {
		http.Error(w, `{"error":"invalid course module"}`, http.StatusBadRequest)
		return
	}

	a, err := s.deps.Store.ActivityByCMID(r.Context(), cmid)
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, `{"error":"course module not found"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error("Loading activity failed", "cmid", cmid, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	hotspots, err := s.deps.Store.Hotspots(r.Context(), a.ID)
	if err != nil {
		s.logger.Error("Loading hotspots failed", "gearid", a.ID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if hotspots == nil {
		hotspots = []core.Hotspot{}
	}
	models := a.Models
	if models == nil {
		models = []core.ModelRef{}
	}

	_ = json.NewEncoder(w).Encode(core.Bootstrap{
		CMID:      a.CMID,
		GearID:    a.ID,
		Config:    a.Config,
		AREnabled: a.AREnabled,
		VREnabled: a.VREnabled,
		Models:    models,
		Hotspots:  hotspots,
		CanManage: caller.CanManage,
	})
}

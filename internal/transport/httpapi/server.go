// Package httpapi exposes the simulation over a JSON HTTP API. Reads
// return snapshot projections; actions go through the simulation's
// serialized operations and map business errors onto stable codes.
package httpapi

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/DerekSmithEstrada/kingdom/internal/protocol"
	"github.com/DerekSmithEstrada/kingdom/internal/sim/catalogs"
	"github.com/DerekSmithEstrada/kingdom/internal/sim/village"
)

// Persister hooks the save layer into the API. Nil disables the save
// endpoints.
type Persister interface {
	// SaveNow writes a save file and returns its path.
	SaveNow() (string, error)
	// LoadLatest restores the newest save and returns its path, or ""
	// when there is none.
	LoadLatest() (string, error)
}

type Server struct {
	sim     *village.Simulation
	catalog *catalogs.Catalog
	saves   Persister
	log     *log.Logger
}

func NewServer(sim *village.Simulation, catalog *catalogs.Catalog, saves Persister, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Server{sim: sim, catalog: catalog, saves: saves, log: logger}
}

// Register installs every API route on the mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/init", s.handleInit)
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /api/hud", s.handleHUD)
	mux.HandleFunc("GET /api/buildings", s.handleBuildings)
	mux.HandleFunc("GET /api/inventory", s.handleInventory)
	mux.HandleFunc("GET /api/trade", s.handleTrade)

	mux.HandleFunc("POST /api/actions/build", s.handleBuild)
	mux.HandleFunc("POST /api/actions/demolish", s.handleDemolish)
	mux.HandleFunc("POST /api/actions/toggle", s.handleToggle)
	mux.HandleFunc("POST /api/actions/workers", s.handleWorkers)
	mux.HandleFunc("POST /api/actions/tick", s.handleTick)
	mux.HandleFunc("POST /api/actions/reset", s.handleReset)
	mux.HandleFunc("POST /api/trade/mode", s.handleTradeMode)
	mux.HandleFunc("POST /api/trade/rate", s.handleTradeRate)

	mux.HandleFunc("POST /api/save", s.handleSave)
	mux.HandleFunc("POST /api/load", s.handleLoad)
}

// stateResponse is the dynamic world projection shared by init and
// state reads.
type stateResponse struct {
	HUD       village.HUDSnapshot        `json:"hud"`
	Buildings []village.BuildingSnapshot `json:"buildings"`
	Inventory []village.ResourceSnapshot `json:"inventory"`
	Trade     []village.ChannelSnapshot  `json:"trade"`
}

func (s *Server) stateResponse() stateResponse {
	return stateResponse{
		HUD:       s.sim.HUD(),
		Buildings: s.sim.SnapshotAll(),
		Inventory: s.sim.InventorySnapshot(),
		Trade:     s.sim.TradeSnapshot(),
	}
}

func (s *Server) handleInit(rw http.ResponseWriter, r *http.Request) {
	resp := struct {
		CatalogDigest string `json:"catalog_digest"`
		stateResponse
	}{
		CatalogDigest: s.catalog.Digest,
		stateResponse: s.stateResponse(),
	}
	writeJSON(rw, http.StatusOK, resp)
}

func (s *Server) handleState(rw http.ResponseWriter, r *http.Request) {
	writeJSON(rw, http.StatusOK, s.stateResponse())
}

func (s *Server) handleHUD(rw http.ResponseWriter, r *http.Request) {
	writeJSON(rw, http.StatusOK, s.sim.HUD())
}

func (s *Server) handleBuildings(rw http.ResponseWriter, r *http.Request) {
	writeJSON(rw, http.StatusOK, s.sim.SnapshotAll())
}

func (s *Server) handleInventory(rw http.ResponseWriter, r *http.Request) {
	writeJSON(rw, http.StatusOK, s.sim.InventorySnapshot())
}

func (s *Server) handleTrade(rw http.ResponseWriter, r *http.Request) {
	writeJSON(rw, http.StatusOK, s.sim.TradeSnapshot())
}

func (s *Server) handleBuild(rw http.ResponseWriter, r *http.Request) {
	var req struct {
		Type string `json:"type"`
	}
	if !decodeBody(rw, r, &req) {
		return
	}
	if req.Type == "" {
		writeError(rw, http.StatusBadRequest, protocol.ErrBadRequest, "missing type")
		return
	}
	snap, err := s.sim.Build(req.Type)
	if err != nil {
		s.writeSimError(rw, err)
		return
	}
	writeJSON(rw, http.StatusOK, snap)
}

func (s *Server) handleDemolish(rw http.ResponseWriter, r *http.Request) {
	var req struct {
		ID int `json:"id"`
	}
	if !decodeBody(rw, r, &req) {
		return
	}
	snap, err := s.sim.Demolish(req.ID)
	if err != nil {
		s.writeSimError(rw, err)
		return
	}
	writeJSON(rw, http.StatusOK, snap)
}

func (s *Server) handleToggle(rw http.ResponseWriter, r *http.Request) {
	var req struct {
		ID      int  `json:"id"`
		Enabled bool `json:"enabled"`
	}
	if !decodeBody(rw, r, &req) {
		return
	}
	snap, err := s.sim.Toggle(req.ID, req.Enabled)
	if err != nil {
		s.writeSimError(rw, err)
		return
	}
	writeJSON(rw, http.StatusOK, snap)
}

func (s *Server) handleWorkers(rw http.ResponseWriter, r *http.Request) {
	var req struct {
		ID    int `json:"id"`
		Delta int `json:"delta"`
	}
	if !decodeBody(rw, r, &req) {
		return
	}
	res, err := s.sim.ApplyWorkerDelta(req.ID, req.Delta)
	if err != nil {
		s.writeSimError(rw, err)
		return
	}
	writeJSON(rw, http.StatusOK, res)
}

// handleTick advances simulated time by hand. Meant for headless
// balancing runs; the background driver keeps ticking regardless.
func (s *Server) handleTick(rw http.ResponseWriter, r *http.Request) {
	var req struct {
		Dt float64 `json:"dt"`
	}
	if !decodeBody(rw, r, &req) {
		return
	}
	if req.Dt < 0 || req.Dt > 86400 {
		writeError(rw, http.StatusBadRequest, protocol.ErrBadRequest, "dt must be within [0, 86400]")
		return
	}
	s.sim.Tick(req.Dt)
	writeJSON(rw, http.StatusOK, s.stateResponse())
}

func (s *Server) handleReset(rw http.ResponseWriter, r *http.Request) {
	if err := s.sim.Reset(); err != nil {
		s.writeSimError(rw, err)
		return
	}
	writeJSON(rw, http.StatusOK, s.stateResponse())
}

func (s *Server) handleTradeMode(rw http.ResponseWriter, r *http.Request) {
	var req struct {
		Resource string `json:"resource"`
		Mode     string `json:"mode"`
	}
	if !decodeBody(rw, r, &req) {
		return
	}
	if err := s.sim.SetTradeMode(req.Resource, req.Mode); err != nil {
		s.writeSimError(rw, err)
		return
	}
	writeJSON(rw, http.StatusOK, s.sim.TradeSnapshot())
}

func (s *Server) handleTradeRate(rw http.ResponseWriter, r *http.Request) {
	var req struct {
		Resource string  `json:"resource"`
		Rate     float64 `json:"rate"`
	}
	if !decodeBody(rw, r, &req) {
		return
	}
	if req.Rate < 0 {
		writeError(rw, http.StatusBadRequest, protocol.ErrBadRequest, "rate must be non-negative")
		return
	}
	if err := s.sim.SetTradeRate(req.Resource, req.Rate); err != nil {
		s.writeSimError(rw, err)
		return
	}
	writeJSON(rw, http.StatusOK, s.sim.TradeSnapshot())
}

func (s *Server) handleSave(rw http.ResponseWriter, r *http.Request) {
	if s.saves == nil {
		writeError(rw, http.StatusNotFound, protocol.ErrNotFound, "persistence disabled")
		return
	}
	path, err := s.saves.SaveNow()
	if err != nil {
		s.log.Printf("save: %v", err)
		writeError(rw, http.StatusInternalServerError, protocol.ErrInternal, "save failed")
		return
	}
	writeJSON(rw, http.StatusOK, map[string]string{"path": path})
}

func (s *Server) handleLoad(rw http.ResponseWriter, r *http.Request) {
	if s.saves == nil {
		writeError(rw, http.StatusNotFound, protocol.ErrNotFound, "persistence disabled")
		return
	}
	path, err := s.saves.LoadLatest()
	if err != nil {
		s.log.Printf("load: %v", err)
		writeError(rw, http.StatusInternalServerError, protocol.ErrInternal, "load failed")
		return
	}
	if path == "" {
		writeError(rw, http.StatusNotFound, protocol.ErrNotFound, "no save available")
		return
	}
	resp := struct {
		Path string `json:"path"`
		stateResponse
	}{Path: path, stateResponse: s.stateResponse()}
	writeJSON(rw, http.StatusOK, resp)
}

func decodeBody(rw http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(rw, http.StatusBadRequest, protocol.ErrBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(rw http.ResponseWriter, status int, body any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(body)
}

func writeError(rw http.ResponseWriter, status int, code, message string) {
	writeJSON(rw, status, protocol.ErrorBody{Code: code, Message: message})
}

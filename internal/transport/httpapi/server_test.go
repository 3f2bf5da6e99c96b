package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DerekSmithEstrada/kingdom/internal/protocol"
	"github.com/DerekSmithEstrada/kingdom/internal/sim/catalogs"
	"github.com/DerekSmithEstrada/kingdom/internal/sim/tuning"
	"github.com/DerekSmithEstrada/kingdom/internal/sim/village"
)

func newTestServer(t *testing.T, saves Persister) (*Server, *village.Simulation) {
	t.Helper()
	cat, err := catalogs.FromDefs([]catalogs.BuildingDef{
		{
			ID: "lumber_camp", Name: "Lumber Camp", Priority: 10, MaxWorkers: 2,
			CycleTime: 2,
			Outputs:   map[string]float64{"WOOD": 1},
			BuildCost: map[string]float64{"STONE": 5},
		},
	})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	sim, err := village.New(village.Config{Catalog: cat, Tuning: tuning.Defaults()})
	if err != nil {
		t.Fatalf("simulation: %v", err)
	}
	return NewServer(sim, cat, saves, nil), sim
}

func doRequest(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	srv.Register(mux)
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) protocol.ErrorBody {
	t.Helper()
	var body protocol.ErrorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("error body: %v (%s)", err, rec.Body.String())
	}
	if !protocol.IsKnownCode(body.Code) {
		t.Fatalf("unknown error code %q", body.Code)
	}
	return body
}

func TestInitCarriesCatalogDigest(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	rec := doRequest(t, srv, http.MethodGet, "/api/init", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		CatalogDigest string                     `json:"catalog_digest"`
		Buildings     []village.BuildingSnapshot `json:"buildings"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.CatalogDigest == "" || len(resp.Buildings) != 1 {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestBuildActionHappyPath(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	rec := doRequest(t, srv, http.MethodPost, "/api/actions/build", `{"type":"lumber_camp"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var snap village.BuildingSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Built != 1 || snap.Type != "lumber_camp" {
		t.Fatalf("snap = %+v", snap)
	}
}

func TestBuildUnknownTypeIs404(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	rec := doRequest(t, srv, http.MethodPost, "/api/actions/build", `{"type":"castle"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := decodeError(t, rec); body.Code != protocol.ErrNotFound {
		t.Fatalf("code = %s", body.Code)
	}
}

func TestBuildInsufficientResourcesCarriesMissing(t *testing.T) {
	srv, sim := newTestServer(t, nil)
	// Exhaust stone: defaults ship 30, each camp costs 5.
	for i := 0; i < 6; i++ {
		if _, err := sim.Build("lumber_camp"); err != nil {
			t.Fatalf("build %d: %v", i, err)
		}
	}
	rec := doRequest(t, srv, http.MethodPost, "/api/actions/build", `{"type":"lumber_camp"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeError(t, rec)
	if body.Code != protocol.ErrNoResource || body.Missing["stone"] <= 0 {
		t.Fatalf("body = %+v", body)
	}
}

func TestWorkerDeltaOnUnbuiltIsAllocationError(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	rec := doRequest(t, srv, http.MethodPost, "/api/actions/workers", `{"id":1,"delta":1}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if body := decodeError(t, rec); body.Code != protocol.ErrAllocation {
		t.Fatalf("code = %s", body.Code)
	}
}

func TestDemolishNothingIsConflict(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	rec := doRequest(t, srv, http.MethodPost, "/api/actions/demolish", `{"id":1}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if body := decodeError(t, rec); body.Code != protocol.ErrConflict {
		t.Fatalf("code = %s", body.Code)
	}
}

func TestManualTickAdvancesState(t *testing.T) {
	srv, sim := newTestServer(t, nil)
	before := sim.Version()

	rec := doRequest(t, srv, http.MethodPost, "/api/actions/tick", `{"dt":5}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	if sim.Version() == before {
		t.Fatalf("expected version to advance")
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/actions/tick", `{"dt":-1}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status=%d want 400", rec.Code)
	}
	if body := decodeError(t, rec); body.Code != protocol.ErrBadRequest {
		t.Fatalf("code=%q", body.Code)
	}
}

func TestMalformedBodyIsBadRequest(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	for _, body := range []string{`{`, `{"unknown_field":1}`} {
		rec := doRequest(t, srv, http.MethodPost, "/api/actions/build", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %q: status = %d", body, rec.Code)
		}
		if eb := decodeError(t, rec); eb.Code != protocol.ErrBadRequest {
			t.Fatalf("code = %s", eb.Code)
		}
	}
}

func TestTradeModeRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	rec := doRequest(t, srv, http.MethodPost, "/api/trade/mode", `{"resource":"wood","mode":"export"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var channels []village.ChannelSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &channels); err != nil {
		t.Fatalf("decode: %v", err)
	}
	found := false
	for _, ch := range channels {
		if ch.Resource == "wood" && ch.Mode == "export" {
			found = true
		}
	}
	if !found {
		t.Fatalf("channels = %+v", channels)
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/trade/mode", `{"resource":"wood","mode":"sideways"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad mode status = %d", rec.Code)
	}
}

type fakePersister struct {
	savePath string
	loadPath string
	err      error
}

func (f *fakePersister) SaveNow() (string, error)    { return f.savePath, f.err }
func (f *fakePersister) LoadLatest() (string, error) { return f.loadPath, f.err }

func TestSaveEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	rec := doRequest(t, srv, http.MethodPost, "/api/save", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("disabled save status = %d", rec.Code)
	}

	srv, _ = newTestServer(t, &fakePersister{savePath: "/saves/x.save.zst", loadPath: "/saves/x.save.zst"})
	rec = doRequest(t, srv, http.MethodPost, "/api/save", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("save status = %d", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/load", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("load status = %d", rec.Code)
	}

	srv, _ = newTestServer(t, &fakePersister{})
	rec = doRequest(t, srv, http.MethodPost, "/api/load", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("empty load status = %d", rec.Code)
	}

	srv, _ = newTestServer(t, &fakePersister{err: errors.New("disk full")})
	rec = doRequest(t, srv, http.MethodPost, "/api/save", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("failed save status = %d", rec.Code)
	}
}

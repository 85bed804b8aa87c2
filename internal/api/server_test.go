package api

import (
	"encoding/binary"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v5"

	"github.com/mrcl/maprot/internal/journal"
	"github.com/mrcl/maprot/internal/logger"
	"github.com/mrcl/maprot/internal/rotation"
	"github.com/mrcl/maprot/internal/servercfg"
	"github.com/mrcl/maprot/internal/workspace"
	"github.com/mrcl/maprot/pkg/bsp"
	"github.com/mrcl/maprot/pkg/ent"
)

func entityText(name string) string {
	return "{\n\"classname\" \"worldspawn\"\n\"message\" \"" + name + "\"\n}\n" +
		"{\n\"classname\" \"info_team_start\"\n\"message\" \"axis\"\n\"nextmap\" \"old\"\n}\n"
}

func container(entities string) []byte {
	buf := make([]byte, bsp.HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:], bsp.Magic)
	binary.LittleEndian.PutUint32(buf[8:], bsp.HeaderSize)
	binary.LittleEndian.PutUint32(buf[12:], uint32(len(entities)))
	return append(buf, entities...)
}

type testEnv struct {
	e       *echo.Echo
	layout  workspace.Layout
	store   *rotation.Store
	journal *journal.Journal
}

func newTestEnv(t *testing.T, maps ...string) *testEnv {
	t.Helper()
	root := t.TempDir()
	layout := workspace.DefaultLayout(root)
	if err := os.MkdirAll(layout.MapsDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, m := range maps {
		if err := os.WriteFile(filepath.Join(layout.MapsDir, m+".bsp"), container(entityText(strings.ToUpper(m))), 0o644); err != nil {
			t.Fatalf("write map: %v", err)
		}
	}
	store, err := rotation.OpenStore(filepath.Join(root, "state", "rotation.db"))
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	j, err := journal.Open(filepath.Join(root, "state", "journal.db"))
	if err != nil {
		t.Fatalf("journal: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })

	server := NewServer(Config{
		Layout:   layout,
		Store:    store,
		Settings: servercfg.DefaultSettings(),
		Journal:  j,
		Logger:   logger.Discard(),
	})
	e := echo.New()
	server.Register(e)
	return &testEnv{e: e, layout: layout, store: store, journal: j}
}

func (env *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestHealth(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("healthz: %d %s", rec.Code, rec.Body.String())
	}
}

func TestExtractThenList(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "dust", "snow")

	rec := env.do(t, http.MethodGet, "/v1/maps", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status: %d %s", rec.Code, rec.Body.String())
	}
	before := decode[mapsResponse](t, rec)
	if len(before.Maps) != 2 || before.Maps[0].Status != workspace.StatusMissing {
		t.Fatalf("before extract: %+v", before.Maps)
	}

	rec = env.do(t, http.MethodPost, "/v1/extract", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("extract status: %d %s", rec.Code, rec.Body.String())
	}
	ex := decode[extractResponse](t, rec)
	if ex.Failed != 0 || len(ex.Results) != 2 || ex.RunID == "" {
		t.Fatalf("extract: %+v", ex)
	}

	rec = env.do(t, http.MethodGet, "/v1/maps/snow", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status: %d %s", rec.Code, rec.Body.String())
	}
	entry := decode[workspace.Entry](t, rec)
	if entry.Status != workspace.StatusGenerated || entry.Summary.MapName != "SNOW" || entry.Summary.AlliesNext != ent.NotAvailable {
		t.Fatalf("entry: %+v", entry)
	}

	rec = env.do(t, http.MethodGet, "/v1/maps/port", "")
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), `"type":"not_found_error"`) {
		t.Fatalf("missing map: %d %s", rec.Code, rec.Body.String())
	}
}

func TestExtractSingleMap(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "dust", "snow")

	rec := env.do(t, http.MethodPost, "/v1/extract", `{"map":"dust"}`)
	ex := decode[extractResponse](t, rec)
	if rec.Code != http.StatusOK || len(ex.Results) != 1 || ex.Results[0].Kind != "ok" {
		t.Fatalf("extract one: %d %+v", rec.Code, ex)
	}
	if _, err := os.Stat(workspace.ArtifactPath(env.layout.EntsDir, "snow")); err == nil {
		t.Fatal("single-map extract touched another map")
	}

	rec = env.do(t, http.MethodPost, "/v1/extract", `{"map":"../etc"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("path traversal: got %d", rec.Code)
	}
	rec = env.do(t, http.MethodPost, "/v1/extract", `{"bogus":1}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown field: got %d", rec.Code)
	}
}

func TestExtractAllFailing(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	if err := os.WriteFile(filepath.Join(env.layout.MapsDir, "bad.bsp"), []byte("nope"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	rec := env.do(t, http.MethodPost, "/v1/extract", "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status: got %d", rec.Code)
	}
	ex := decode[extractResponse](t, rec)
	if ex.Results[0].Kind != bsp.KindHeaderTooShort.String() {
		t.Fatalf("kind: %+v", ex.Results[0])
	}
}

func TestRotationEditing(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPut, "/v1/rotation", `{"maps":["dust","snow","port"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("put: %d %s", rec.Code, rec.Body.String())
	}
	got := decode[rotationResponse](t, rec)
	if len(got.Links) != 3 || got.Links[2].Next != "dust" {
		t.Fatalf("links: %+v", got.Links)
	}

	rec = env.do(t, http.MethodPut, "/v1/rotation", `{"maps":["dust","dust"]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate put: got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/v1/rotation/maps", `{"map":"bridge","index":0}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("add: %d %s", rec.Code, rec.Body.String())
	}
	rec = env.do(t, http.MethodPost, "/v1/rotation/maps", `{"map":"snow"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("add duplicate: got %d", rec.Code)
	}
	rec = env.do(t, http.MethodDelete, "/v1/rotation/maps/snow", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("remove: %d %s", rec.Code, rec.Body.String())
	}
	rec = env.do(t, http.MethodDelete, "/v1/rotation/maps/snow", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("remove twice: got %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/v1/rotation", "")
	got = decode[rotationResponse](t, rec)
	if strings.Join(got.Maps, ",") != "bridge,dust,port" {
		t.Fatalf("stored rotation: %v", got.Maps)
	}
}

func TestGenerate(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "dust", "snow")

	rec := env.do(t, http.MethodPost, "/v1/rotation/generate", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty rotation: got %d", rec.Code)
	}

	env.do(t, http.MethodPost, "/v1/extract", "")
	env.do(t, http.MethodPut, "/v1/rotation", `{"maps":["snow","dust"]}`)
	rec = env.do(t, http.MethodPost, "/v1/rotation/generate", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("generate: %d %s", rec.Code, rec.Body.String())
	}
	var body struct {
		RunID string                `json:"run_id"`
		Maps  []workspace.MapResult `json:"maps"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.RunID == "" || len(body.Maps) != 2 || body.Maps[0].Next != "dust" {
		t.Fatalf("report: %+v", body)
	}

	s, err := ent.ReadSummary(workspace.ArtifactPath(env.layout.ModifiedDir, "dust"))
	if err != nil {
		t.Fatalf("read modified: %v", err)
	}
	if s.AxisNext != "snow" {
		t.Fatalf("dust axis next: got %q want snow", s.AxisNext)
	}

	rec = env.do(t, http.MethodGet, "/v1/runs", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), body.RunID) {
		t.Fatalf("runs: %d %s", rec.Code, rec.Body.String())
	}
}

func TestMetrics(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, "dust")
	env.do(t, http.MethodPost, "/v1/extract", "")

	rec := env.do(t, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`maprot_extract_total{kind="ok"} 1`,
		`maprot_maps{status="generated"} 1`,
		`maprot_rotation_maps 0`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics lack %q", want)
		}
	}
}

func TestDashboard(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard status: %d", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, "<title>maprot</title>") || !strings.Contains(body, "/v1/rotation") {
		t.Fatalf("dashboard body does not look like the index page")
	}
}

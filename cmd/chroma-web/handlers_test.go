package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fpang/chroma-restore/internal/chat"
	"github.com/fpang/chroma-restore/internal/config"
	"github.com/fpang/chroma-restore/internal/metrics"
	"github.com/fpang/chroma-restore/internal/session"
	"github.com/rs/zerolog"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	metrics.SetSink(io.Discard)
	goleak.VerifyTestMain(m)
}

type stubColorizer struct {
	preflightErr error
	result       *chat.ColorizeResult
	err          error
}

func (s *stubColorizer) Preflight() error { return s.preflightErr }

func (s *stubColorizer) Colorize(ctx context.Context, payload, hint string) (*chat.ColorizeResult, error) {
	return s.result, s.err
}

func pngBytes(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

type testEnv struct {
	srv     *server
	orch    *session.Orchestrator
	handler http.Handler
}

func newTestEnv(t *testing.T, c session.Colorizer) *testEnv {
	t.Helper()
	orch := session.New(c, session.Options{
		TickInterval: 10 * time.Millisecond,
		Messages:     config.DefaultLoadingMessages,
		Now:          func() time.Time { return time.UnixMilli(1700000000000) },
	})
	t.Cleanup(orch.Close)

	cfg := &config.Config{Upload: config.UploadConfig{MaxSize: 1 << 20}}
	srv := newServer(orch, cfg, true)
	srv.pick = func() (string, bool, error) { return "", false, nil }

	handler, err := srv.routes()
	if err != nil {
		t.Fatal(err)
	}
	return &testEnv{srv: srv, orch: orch, handler: handler}
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) postJSON(t *testing.T, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return e.do(t, req)
}

type uploadFile struct {
	name        string
	contentType string
	data        []byte
}

func (e *testEnv) upload(t *testing.T, files ...uploadFile) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, f := range files {
		h := make(map[string][]string)
		h["Content-Disposition"] = []string{`form-data; name="file"; filename="` + f.name + `"`}
		h["Content-Type"] = []string{f.contentType}
		part, err := mw.CreatePart(h)
		if err != nil {
			t.Fatal(err)
		}
		part.Write(f.data)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return e.do(t, req)
}

func decodeState(t *testing.T, rec *httptest.ResponseRecorder) stateView {
	t.Helper()
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var v stateView
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	return v
}

func (e *testEnv) state(t *testing.T, withImages bool) stateView {
	t.Helper()
	path := "/api/state"
	if withImages {
		path += "?images=1"
	}
	return decodeState(t, e.do(t, httptest.NewRequest(http.MethodGet, path, nil)))
}

// rawState keeps the JSON state name, which stateView only marshals.
func rawState(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return m
}

func successColorizer(t *testing.T) *stubColorizer {
	return &stubColorizer{result: &chat.ColorizeResult{
		Data:     base64.StdEncoding.EncodeToString(pngBytes(t, 40, 20, color.RGBA{R: 200, A: 255})),
		MIMEType: "image/png",
	}}
}

func TestStateInitial(t *testing.T) {
	env := newTestEnv(t, successColorizer(t))

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/state", nil))
	m := rawState(t, rec)
	if m["state"] != "idle" {
		t.Errorf("state = %v, want idle", m["state"])
	}
	if m["hasImage"] != false || m["canColorize"] != false {
		t.Errorf("unexpected initial flags: %v", m)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestUploadAcceptsImage(t *testing.T) {
	env := newTestEnv(t, successColorizer(t))
	data := pngBytes(t, 40, 20, color.Gray{Y: 128})

	v := decodeState(t, env.upload(t, uploadFile{"grandma.png", "image/png", data}))
	if !v.HasImage || !v.CanColorize {
		t.Fatalf("upload should load the image: %+v", v)
	}
	if v.Filename != "grandma.png" {
		t.Errorf("Filename = %q", v.Filename)
	}
	if v.Original != "" {
		t.Error("state without ?images=1 must not carry image data")
	}
	if v.OriginalInfo == nil || v.OriginalInfo.Width != 40 || v.OriginalInfo.Height != 20 {
		t.Errorf("OriginalInfo = %+v", v.OriginalInfo)
	}
	if v.ImageKey == "" {
		t.Error("ImageKey should be set once an image is loaded")
	}

	full := env.state(t, true)
	want := "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)
	if full.Original != want {
		t.Error("?images=1 should return the original as a data URL")
	}
}

func TestUploadTakesFirstFileOnly(t *testing.T) {
	env := newTestEnv(t, successColorizer(t))

	v := decodeState(t, env.upload(t,
		uploadFile{"first.png", "image/png", pngBytes(t, 4, 4, color.Black)},
		uploadFile{"second.png", "image/png", pngBytes(t, 8, 8, color.Black)},
	))
	if v.Filename != "first.png" {
		t.Errorf("Filename = %q, want first.png", v.Filename)
	}
}

func TestUploadIgnoresRejectedFiles(t *testing.T) {
	tests := []struct {
		name string
		file uploadFile
	}{
		{"not an image", uploadFile{"notes.txt", "text/plain", []byte("hello")}},
		{"over size cap", uploadFile{"huge.png", "image/png", bytes.Repeat([]byte{0}, 1<<20+1)}},
		{"over request limit", uploadFile{"huger.png", "image/png", bytes.Repeat([]byte{0}, 3<<20)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, successColorizer(t))

			rec := env.upload(t, tt.file)
			if rec.Code != http.StatusNoContent {
				t.Fatalf("status = %d, want 204", rec.Code)
			}
			if v := env.state(t, false); v.HasImage {
				t.Error("rejected file must not change the session")
			}
		})
	}
}

func TestColorizeFlow(t *testing.T) {
	env := newTestEnv(t, successColorizer(t))
	decodeState(t, env.upload(t, uploadFile{"photo.png", "image/png", pngBytes(t, 40, 20, color.Gray{Y: 90})}))

	if rec := env.postJSON(t, "/api/hint", map[string]string{"hint": "red barn"}); rec.Code != http.StatusOK {
		t.Fatalf("hint status = %d", rec.Code)
	}

	rec := env.postJSON(t, "/api/colorize", nil)
	if m := rawState(t, rec); m["state"] != "processing" {
		t.Fatalf("state after colorize = %v, want processing", m["state"])
	}

	env.orch.Wait()

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/state?images=1", nil))
	m := rawState(t, rec)
	if m["state"] != "complete" {
		t.Fatalf("state = %v, want complete", m["state"])
	}
	v := decodeState(t, rec)
	if !strings.HasPrefix(v.Processed, "data:image/png;base64,") {
		t.Errorf("Processed = %.40q", v.Processed)
	}
	if v.Hint != "red barn" {
		t.Errorf("Hint = %q", v.Hint)
	}
	if v.Slider == nil || v.Slider.Position != 50 {
		t.Errorf("Slider = %+v, want centered", v.Slider)
	}

	dl := env.do(t, httptest.NewRequest(http.MethodGet, "/api/download", nil))
	if dl.Code != http.StatusOK {
		t.Fatalf("download status = %d", dl.Code)
	}
	if cd := dl.Header().Get("Content-Disposition"); cd != `attachment; filename="chroma-restored-1700000000000.png"` {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if _, err := png.Decode(dl.Body); err != nil {
		t.Errorf("download is not a PNG: %v", err)
	}
}

func TestColorizeWithoutAPIKey(t *testing.T) {
	env := newTestEnv(t, &stubColorizer{preflightErr: chat.ErrMissingAPIKey})
	decodeState(t, env.upload(t, uploadFile{"photo.png", "image/png", pngBytes(t, 4, 4, color.Black)}))

	rec := env.postJSON(t, "/api/colorize", nil)
	m := rawState(t, rec)
	if m["state"] != "error" {
		t.Fatalf("state = %v, want error", m["state"])
	}
	v := decodeState(t, rec)
	if v.Error == nil || v.Error.Message != session.MsgColorizeFailed {
		t.Errorf("Error = %+v", v.Error)
	}

	rec = env.postJSON(t, "/api/dismiss", nil)
	if m := rawState(t, rec); m["state"] != "idle" {
		t.Errorf("state after dismiss = %v, want idle", m["state"])
	}
}

func TestColorizeFailureShowsDetails(t *testing.T) {
	env := newTestEnv(t, &stubColorizer{err: errors.New("quota exhausted")})
	decodeState(t, env.upload(t, uploadFile{"photo.png", "image/png", pngBytes(t, 4, 4, color.Black)}))

	env.postJSON(t, "/api/colorize", nil)
	env.orch.Wait()

	v := env.state(t, false)
	if v.Error == nil || v.Error.Details != "quota exhausted" {
		t.Errorf("Error = %+v", v.Error)
	}
	if !v.HasImage {
		t.Error("failed run should keep the original")
	}
}

func TestDownloadAndCompareBeforeComplete(t *testing.T) {
	env := newTestEnv(t, successColorizer(t))

	for _, path := range []string{"/api/download", "/api/compare.png"} {
		rec := env.do(t, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusConflict {
			t.Errorf("%s status = %d, want 409", path, rec.Code)
		}
	}
	if rec := env.postJSON(t, "/api/slider", map[string]interface{}{"type": "press"}); rec.Code != http.StatusConflict {
		t.Errorf("slider status = %d, want 409", rec.Code)
	}
}

func completeSession(t *testing.T, env *testEnv) {
	t.Helper()
	decodeState(t, env.upload(t, uploadFile{"photo.png", "image/png", pngBytes(t, 40, 20, color.Gray{Y: 90})}))
	env.postJSON(t, "/api/colorize", nil)
	env.orch.Wait()
}

func TestSliderDrag(t *testing.T) {
	env := newTestEnv(t, successColorizer(t))
	completeSession(t, env)

	steps := []struct {
		body map[string]interface{}
		want float64
	}{
		{map[string]interface{}{"type": "resize", "left": 100, "width": 400}, 50},
		{map[string]interface{}{"type": "press", "x": 200, "left": 100, "width": 400}, 50},
		{map[string]interface{}{"type": "move", "x": 200, "left": 100, "width": 400}, 25},
		{map[string]interface{}{"type": "move", "x": 900, "left": 100, "width": 400}, 100},
		{map[string]interface{}{"type": "release"}, 100},
		{map[string]interface{}{"type": "move", "x": 100, "left": 100, "width": 400}, 100},
	}

	for i, step := range steps {
		rec := env.postJSON(t, "/api/slider", step.body)
		if rec.Code != http.StatusOK {
			t.Fatalf("step %d: status = %d, body %s", i, rec.Code, rec.Body.String())
		}
		var sv sliderView
		if err := json.Unmarshal(rec.Body.Bytes(), &sv); err != nil {
			t.Fatal(err)
		}
		if sv.Position != step.want {
			t.Errorf("step %d: position = %v, want %v", i, sv.Position, step.want)
		}
		if sv.Layout == nil || sv.Layout.Width != 400 {
			t.Errorf("step %d: layout = %+v", i, sv.Layout)
		}
	}
}

func TestSliderFollowsShiftedContainer(t *testing.T) {
	env := newTestEnv(t, successColorizer(t))
	completeSession(t, env)

	env.postJSON(t, "/api/slider", map[string]interface{}{"type": "resize", "left": 100, "width": 400})
	env.postJSON(t, "/api/slider", map[string]interface{}{"type": "press", "x": 400, "left": 300, "width": 400})
	rec := env.postJSON(t, "/api/slider", map[string]interface{}{"type": "move", "x": 400, "left": 300, "width": 400})

	var sv sliderView
	if err := json.Unmarshal(rec.Body.Bytes(), &sv); err != nil {
		t.Fatal(err)
	}
	if sv.Position != 25 {
		t.Errorf("position = %v, want 25", sv.Position)
	}
}

func TestSliderEventOrdering(t *testing.T) {
	env := newTestEnv(t, successColorizer(t))
	completeSession(t, env)

	slide := func(body map[string]interface{}) float64 {
		t.Helper()
		rec := env.postJSON(t, "/api/slider", body)
		var sv sliderView
		if err := json.Unmarshal(rec.Body.Bytes(), &sv); err != nil {
			t.Fatal(err)
		}
		return sv.Position
	}
	b := func(typ string, x float64) map[string]interface{} {
		return map[string]interface{}{"type": typ, "x": x, "left": 0, "width": 200}
	}

	if got := slide(b("move", 20)); got != 50 {
		t.Errorf("move before press moved the divider to %v", got)
	}
	if got := slide(b("press", 20)); got != 50 {
		t.Errorf("press moved the divider to %v", got)
	}
	slide(b("move", 40))
	if got := slide(b("move", 160)); got != 80 {
		t.Errorf("last move = %v, want 80", got)
	}
	if got := slide(b("release", 0)); got != 80 {
		t.Errorf("release changed position to %v", got)
	}
}

func TestFrontendSerializesSliderEvents(t *testing.T) {
	data, err := frontendFS.ReadFile("frontend_dist/app.js")
	if err != nil {
		t.Fatal(err)
	}
	js := string(data)
	if !strings.Contains(js, "sliderBusy") || !strings.Contains(js, "sliderQueue") {
		t.Error("slider requests should go through a single in-flight queue")
	}
	if strings.Contains(js, `sendSlider("move", e.clientX)`) {
		t.Error("pointerdown should not synthesize a move")
	}
}

func TestSliderRejectsUnknownType(t *testing.T) {
	env := newTestEnv(t, successColorizer(t))
	completeSession(t, env)

	if rec := env.postJSON(t, "/api/slider", map[string]string{"type": "wiggle"}); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestCompareRendersFrame(t *testing.T) {
	env := newTestEnv(t, successColorizer(t))
	completeSession(t, env)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/compare.png?width=200", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	img, err := png.Decode(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 200 || img.Bounds().Dy() != 100 {
		t.Errorf("frame = %v, want 200x100", img.Bounds())
	}

	if rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/compare.png?width=0", nil)); rec.Code != http.StatusBadRequest {
		t.Errorf("width=0 status = %d, want 400", rec.Code)
	}
}

func TestResetClearsSession(t *testing.T) {
	env := newTestEnv(t, successColorizer(t))
	completeSession(t, env)

	v := decodeState(t, env.postJSON(t, "/api/reset", nil))
	if v.HasImage || v.Hint != "" || v.Slider != nil || v.ImageKey != "" {
		t.Errorf("reset left state behind: %+v", v)
	}
}

func TestPick(t *testing.T) {
	env := newTestEnv(t, successColorizer(t))

	rec := env.postJSON(t, "/api/pick", nil)
	if m := rawState(t, rec); m["canceled"] != true {
		t.Errorf("cancel should report canceled, got %v", m)
	}

	path := filepath.Join(t.TempDir(), "scan.png")
	if err := os.WriteFile(path, pngBytes(t, 6, 3, color.White), 0o644); err != nil {
		t.Fatal(err)
	}
	env.srv.pick = func() (string, bool, error) { return path, true, nil }

	v := decodeState(t, env.postJSON(t, "/api/pick", nil))
	if v.Filename != "scan.png" || !v.HasImage {
		t.Errorf("picked file not loaded: %+v", v)
	}

	env.srv.pick = func() (string, bool, error) { return "", false, errors.New("no display") }
	if rec := env.postJSON(t, "/api/pick", nil); rec.Code != http.StatusInternalServerError {
		t.Errorf("picker error status = %d, want 500", rec.Code)
	}
}

func TestMethodRouting(t *testing.T) {
	env := newTestEnv(t, successColorizer(t))

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/colorize", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /api/colorize status = %d, want 405", rec.Code)
	}
}

func TestFrontendFallback(t *testing.T) {
	env := newTestEnv(t, successColorizer(t))

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/some/client/route", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ChromaRestore") {
		t.Error("unknown paths should serve index.html")
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("security headers missing")
	}
}

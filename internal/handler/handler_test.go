package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/livreur-console/internal/dashboard"
	"github.com/mmeshcher/livreur-console/internal/livreur"
	"github.com/mmeshcher/livreur-console/internal/model"
	"github.com/mmeshcher/livreur-console/internal/orderview"
	"github.com/mmeshcher/livreur-console/internal/scanner"
	"github.com/mmeshcher/livreur-console/internal/theme"
	"github.com/mmeshcher/livreur-console/internal/validation"
)

type stubConsole struct {
	state  dashboard.State
	toasts []dashboard.Toast

	loadErr     error
	toggleErr   error
	openErr     error
	submitErr   error
	openOrdErr  error
	refusalErr  error
	updateErr   error
	historyResp *model.HistoryPage
	historyErr  error

	submittedCode string
	openedOrder   string
	refusal       model.RefusalReason
	updatedTo     model.OrderStatus
	historyFilter livreur.HistoryFilter
	detailClosed  bool
}

func (s *stubConsole) Snapshot() dashboard.State { return s.state }
func (s *stubConsole) TakeToasts() []dashboard.Toast { t := s.toasts; s.toasts = nil; return t }
func (s *stubConsole) Load(ctx context.Context) error { return s.loadErr }
func (s *stubConsole) ToggleAvailability(ctx context.Context) error {
	return s.toggleErr
}
func (s *stubConsole) OpenScanner(ctx context.Context) error { return s.openErr }
func (s *stubConsole) OpenManualEntry() error { return nil }
func (s *stubConsole) CloseScanner() error { return nil }
func (s *stubConsole) SubmitManualCode(ctx context.Context, input string) error {
	s.submittedCode = input
	return s.submitErr
}
func (s *stubConsole) OpenOrder(orderID string) error {
	s.openedOrder = orderID
	return s.openOrdErr
}
func (s *stubConsole) CloseDetail() { s.detailClosed = true }
func (s *stubConsole) SetRefusal(reason model.RefusalReason, details string) error {
	s.refusal = reason
	return s.refusalErr
}
func (s *stubConsole) UpdateStatus(ctx context.Context, to model.OrderStatus) error {
	s.updatedTo = to
	return s.updateErr
}
func (s *stubConsole) History(ctx context.Context, f livreur.HistoryFilter) (*model.HistoryPage, error) {
	s.historyFilter = f
	return s.historyResp, s.historyErr
}

type stubThemes struct {
	sel       model.ThemeSelection
	changeErr error
}

func (s *stubThemes) Selection() model.ThemeSelection { return s.sel }
func (s *stubThemes) ActiveColors() theme.Colors {
	if s.sel.Dark {
		return theme.DarkPalette
	}
	return theme.Palettes[s.sel.Palette]
}
func (s *stubThemes) ChangeTheme(ctx context.Context, name string) error {
	if s.changeErr != nil {
		return s.changeErr
	}
	s.sel.Palette = name
	return nil
}
func (s *stubThemes) ToggleDarkMode(ctx context.Context) (bool, error) {
	s.sel.Dark = !s.sel.Dark
	return s.sel.Dark, nil
}

type stubCategories struct {
	resp []model.Category
	err  error
}

func (s *stubCategories) GetCategories(ctx context.Context) ([]model.Category, error) {
	return s.resp, s.err
}

type stubFrames struct {
	pushed []string
	err    error
}

func (s *stubFrames) Push(payload string) error {
	s.pushed = append(s.pushed, payload)
	return s.err
}

func newTestHandler(t *testing.T, c Console) *Handler {
	t.Helper()

	logger, err := zap.NewDevelopment()
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	return NewHandler(c, &stubThemes{sel: model.ThemeSelection{Palette: "purple"}}, &stubCategories{}, &stubFrames{}, logger)
}

func serve(h *Handler, method, target string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	rec := httptest.NewRecorder()
	h.SetupRouter().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return resp.Error
}

func TestGetDashboard_DrainsToasts(t *testing.T) {
	c := &stubConsole{
		state:  dashboard.State{IsAvailable: true, Orders: []model.Order{{ID: "o1"}}},
		toasts: []dashboard.Toast{{Kind: dashboard.ToastSuccess, Message: dashboard.MsgOrderFound}},
	}
	h := newTestHandler(t, c)

	rec := serve(h, http.MethodGet, "/api/dashboard", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content-type = %q, want application/json", ct)
	}

	var st struct {
		IsAvailable bool              `json:"isAvailable"`
		Toasts      []dashboard.Toast `json:"toasts"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !st.IsAvailable {
		t.Fatalf("isAvailable = false, want true")
	}
	if len(st.Toasts) != 1 || st.Toasts[0].Message != dashboard.MsgOrderFound {
		t.Fatalf("toasts = %+v", st.Toasts)
	}
	if len(c.toasts) != 0 {
		t.Fatalf("toasts not drained")
	}
}

func TestSubmitCode_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"empty code", validation.ErrEmptyCode, http.StatusUnprocessableEntity, dashboard.MsgEmptyCode},
		{"server message", &livreur.RequestError{StatusCode: 404, Message: "not found"}, http.StatusBadGateway, "not found"},
		{"transport", errors.New("dial tcp: refused"), http.StatusBadGateway, dashboard.MsgConnectionError},
		{"empty order", livreur.ErrOrderNotFound, http.StatusBadGateway, "Commande introuvable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &stubConsole{submitErr: tt.err}
			h := newTestHandler(t, c)

			rec := serve(h, http.MethodPost, "/api/scanner/code", codeRequest{Code: "liv-2834"})
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if got := decodeError(t, rec); got != tt.message {
				t.Fatalf("error = %q, want %q", got, tt.message)
			}
			if c.submittedCode != "liv-2834" {
				t.Fatalf("submitted = %q", c.submittedCode)
			}
		})
	}
}

func TestOpenScanner_CameraFailureIsNotAnError(t *testing.T) {
	c := &stubConsole{
		openErr: scanner.ErrCameraUnavailable,
		state: dashboard.State{Scanner: dashboard.ScannerState{
			Mode: dashboard.ScannerCamera, Session: scanner.StateFailed, CameraError: "camera unavailable",
		}},
	}
	h := newTestHandler(t, c)

	rec := serve(h, http.MethodPost, "/api/scanner/open", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), `"cameraError":"camera unavailable"`) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestPushPayload(t *testing.T) {
	frames := &stubFrames{}
	h := newTestHandler(t, &stubConsole{})
	h.frames = frames

	rec := serve(h, http.MethodPost, "/api/scanner/payload", payloadRequest{Payload: "QR-Code:LIV-5A5A"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if len(frames.pushed) != 1 || frames.pushed[0] != "QR-Code:LIV-5A5A" {
		t.Fatalf("pushed = %v", frames.pushed)
	}

	frames.err = scanner.ErrCameraInactive
	rec = serve(h, http.MethodPost, "/api/scanner/payload", payloadRequest{Payload: "x"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("inactive status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestOpenOrder(t *testing.T) {
	c := &stubConsole{}
	h := newTestHandler(t, c)

	rec := serve(h, http.MethodPost, "/api/orders/o42/open", nil)
	if rec.Code != http.StatusOK || c.openedOrder != "o42" {
		t.Fatalf("status = %d, opened = %q", rec.Code, c.openedOrder)
	}

	rec = serve(h, http.MethodPost, "/api/detail/close", nil)
	if rec.Code != http.StatusOK || !c.detailClosed {
		t.Fatalf("close detail: status = %d, closed = %v", rec.Code, c.detailClosed)
	}

	c.openOrdErr = dashboard.ErrOrderNotInList
	rec = serve(h, http.MethodPost, "/api/orders/missing/open", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestUpdateStatus(t *testing.T) {
	tests := []struct {
		name       string
		body       any
		updateErr  error
		wantStatus int
		wantTo     model.OrderStatus
		wantReason model.RefusalReason
	}{
		{
			name:       "delivered",
			body:       statusRequest{Status: model.StatusDelivered},
			wantStatus: http.StatusOK,
			wantTo:     model.StatusDelivered,
		},
		{
			name:       "refused with reason",
			body:       statusRequest{Status: model.StatusRefused, Reason: model.ReasonNotHome, Details: "sonné 2 fois"},
			wantStatus: http.StatusOK,
			wantTo:     model.StatusRefused,
			wantReason: model.ReasonNotHome,
		},
		{
			name:       "refused without reason",
			body:       statusRequest{Status: model.StatusRefused},
			updateErr:  orderview.ErrReasonRequired,
			wantStatus: http.StatusUnprocessableEntity,
			wantTo:     model.StatusRefused,
		},
		{
			name:       "in flight",
			body:       statusRequest{Status: model.StatusDelivered},
			updateErr:  orderview.ErrSubmitting,
			wantStatus: http.StatusConflict,
			wantTo:     model.StatusDelivered,
		},
		{
			name:       "unknown status",
			body:       map[string]string{"status": "lost"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown reason",
			body:       statusRequest{Status: model.StatusRefused, Reason: "bored"},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &stubConsole{updateErr: tt.updateErr}
			h := newTestHandler(t, c)

			rec := serve(h, http.MethodPost, "/api/detail/status", tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if c.updatedTo != tt.wantTo {
				t.Fatalf("updated to %q, want %q", c.updatedTo, tt.wantTo)
			}
			if c.refusal != tt.wantReason {
				t.Fatalf("refusal = %q, want %q", c.refusal, tt.wantReason)
			}
		})
	}
}

func TestGetHistory_ParsesFilter(t *testing.T) {
	c := &stubConsole{historyResp: &model.HistoryPage{Pagination: model.Pagination{Page: 2, Limit: 10, Total: 14, Pages: 2}}}
	h := newTestHandler(t, c)

	rec := serve(h, http.MethodGet, "/api/history?page=2&limit=10&status=delivered&from=2026-10-01&to=2026-10-15", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	want := livreur.HistoryFilter{
		Page:   2,
		Limit:  10,
		Status: model.StatusDelivered,
		From:   time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
		To:     time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC),
	}
	if c.historyFilter != want {
		t.Fatalf("filter = %+v, want %+v", c.historyFilter, want)
	}

	for _, q := range []string{"page=x", "limit=-1", "status=lost", "from=01/10/2026"} {
		rec = serve(h, http.MethodGet, "/api/history?"+q, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want %d", q, rec.Code, http.StatusBadRequest)
		}
	}
}

func TestTheme(t *testing.T) {
	h := newTestHandler(t, &stubConsole{})

	rec := serve(h, http.MethodPut, "/api/theme", paletteRequest{Palette: "green"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var resp themeResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Palette != "green" || resp.Colors != theme.Palettes["green"] {
		t.Fatalf("theme = %+v", resp)
	}

	rec = serve(h, http.MethodPost, "/api/theme/dark", nil)
	resp = themeResponse{}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Dark || resp.Colors != theme.DarkPalette {
		t.Fatalf("dark theme = %+v", resp)
	}

	h.themes.(*stubThemes).changeErr = theme.ErrUnknownPalette
	rec = serve(h, http.MethodPut, "/api/theme", paletteRequest{Palette: "teal"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown palette status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestGetCategories(t *testing.T) {
	count := 3
	h := newTestHandler(t, &stubConsole{})
	h.categories = &stubCategories{resp: []model.Category{{ID: "c1", Name: "Épicerie", Slug: "epicerie", ProductCount: &count}}}

	rec := serve(h, http.MethodGet, "/api/categories", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), "3 produits") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestRouter_UnknownRoutes(t *testing.T) {
	h := newTestHandler(t, &stubConsole{})

	if rec := serve(h, http.MethodGet, "/api/unknown", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	if rec := serve(h, http.MethodDelete, "/api/dashboard", nil); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}

func TestBrowserFrame_OpensOrderDetail(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/livreur/scan/LIV-5A5A" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"not found"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"order":{"_id":"o7","orderNumber":"CMD-7","deliveryCode":"LIV-5A5A","status":"out_for_delivery"}}`))
	}))
	defer backend.Close()

	camera := scanner.NewPushCamera()
	api := livreur.NewClient(backend.URL, nil)
	d := dashboard.New(api, camera, zap.NewNop())
	defer d.Close()

	h := NewHandler(d, &stubThemes{}, &stubCategories{}, camera, zap.NewNop())

	if rec := serve(h, http.MethodPost, "/api/scanner/payload", payloadRequest{Payload: "LIV-5A5A"}); rec.Code != http.StatusConflict {
		t.Fatalf("payload before open: status = %d, want %d", rec.Code, http.StatusConflict)
	}

	if rec := serve(h, http.MethodPost, "/api/scanner/open", nil); rec.Code != http.StatusOK {
		t.Fatalf("open: status = %d", rec.Code)
	}

	rec := serve(h, http.MethodPost, "/api/scanner/payload", payloadRequest{Payload: "QR-Code:LIV-5A5A"})
	if rec.Code != http.StatusOK {
		t.Fatalf("payload: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	st := d.Snapshot()
	if st.Detail == nil || st.Detail.Order.ID != "o7" {
		t.Fatalf("detail = %+v, want order o7", st.Detail)
	}
	if st.Scanner.Mode != dashboard.ScannerClosed {
		t.Fatalf("scanner mode = %q, want closed", st.Scanner.Mode)
	}
	if !strings.Contains(rec.Body.String(), dashboard.MsgOrderFound) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestToggleAvailability_PendingIsConflict(t *testing.T) {
	c := &stubConsole{toggleErr: dashboard.ErrAvailabilityPending}
	h := newTestHandler(t, c)

	rec := serve(h, http.MethodPost, "/api/availability/toggle", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
	}

	c.toggleErr = nil
	if rec := serve(h, http.MethodPost, "/api/availability/toggle", nil); rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

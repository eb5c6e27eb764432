// Package handler содержит HTTP-обработчики локальной консоли курьера.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/livreur-console/internal/catalog"
	"github.com/mmeshcher/livreur-console/internal/dashboard"
	"github.com/mmeshcher/livreur-console/internal/livreur"
	"github.com/mmeshcher/livreur-console/internal/model"
	"github.com/mmeshcher/livreur-console/internal/orderview"
	"github.com/mmeshcher/livreur-console/internal/scanner"
	"github.com/mmeshcher/livreur-console/internal/theme"
	"github.com/mmeshcher/livreur-console/internal/validation"
)

// Console определяет контракт экрана курьера, используемый HTTP-обработчиками.
type Console interface {
	Snapshot() dashboard.State
	TakeToasts() []dashboard.Toast
	Load(ctx context.Context) error
	ToggleAvailability(ctx context.Context) error
	OpenScanner(ctx context.Context) error
	OpenManualEntry() error
	CloseScanner() error
	SubmitManualCode(ctx context.Context, input string) error
	OpenOrder(orderID string) error
	CloseDetail()
	SetRefusal(reason model.RefusalReason, details string) error
	UpdateStatus(ctx context.Context, to model.OrderStatus) error
	History(ctx context.Context, f livreur.HistoryFilter) (*model.HistoryPage, error)
}

// Themes определяет контракт хранилища темы.
type Themes interface {
	Selection() model.ThemeSelection
	ActiveColors() theme.Colors
	ChangeTheme(ctx context.Context, name string) error
	ToggleDarkMode(ctx context.Context) (bool, error)
}

// Categories загружает категории каталога.
type Categories interface {
	GetCategories(ctx context.Context) ([]model.Category, error)
}

// FrameSink принимает содержимое, распознанное декодером в браузере.
type FrameSink interface {
	Push(payload string) error
}

// Handler реализует HTTP-обработчики консоли курьера.
type Handler struct {
	console    Console
	themes     Themes
	categories Categories
	frames     FrameSink
	logger     *zap.Logger
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(c Console, t Themes, cat Categories, frames FrameSink, logger *zap.Logger) *Handler {
	return &Handler{
		console:    c,
		themes:     t,
		categories: cat,
		frames:     frames,
		logger:     logger,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

type codeRequest struct {
	Code string `json:"code"`
}

type payloadRequest struct {
	Payload string `json:"payload"`
}

type statusRequest struct {
	Status  model.OrderStatus   `json:"status"`
	Reason  model.RefusalReason `json:"reason"`
	Details string              `json:"details"`
}

type paletteRequest struct {
	Palette string `json:"palette"`
}

type themeResponse struct {
	model.ThemeSelection
	Colors   theme.Colors `json:"colors"`
	Palettes []string     `json:"palettes"`
}

// GetDashboard возвращает текущее состояние экрана.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	h.writeState(w, http.StatusOK)
}

// RefreshDashboard заново загружает сводку и список заказов.
func (h *Handler) RefreshDashboard(w http.ResponseWriter, r *http.Request) {
	if err := h.console.Load(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeState(w, http.StatusOK)
}

// ToggleAvailability переключает доступность курьера.
func (h *Handler) ToggleAvailability(w http.ResponseWriter, r *http.Request) {
	if err := h.console.ToggleAvailability(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeState(w, http.StatusOK)
}

// OpenScanner открывает сканер. Недоступная камера не считается ошибкой
// запроса: причина попадает в состояние, ручной ввод остаётся доступен.
func (h *Handler) OpenScanner(w http.ResponseWriter, r *http.Request) {
	if err := h.console.OpenScanner(r.Context()); err != nil {
		h.logger.Info("scanner opened without camera", zap.Error(err))
	}
	h.writeState(w, http.StatusOK)
}

// OpenManualEntry переключает сканер в режим ручного ввода.
func (h *Handler) OpenManualEntry(w http.ResponseWriter, r *http.Request) {
	if err := h.console.OpenManualEntry(); err != nil {
		h.logger.Warn("release camera error", zap.Error(err))
	}
	h.writeState(w, http.StatusOK)
}

// CloseScanner закрывает сканер и освобождает камеру.
func (h *Handler) CloseScanner(w http.ResponseWriter, r *http.Request) {
	if err := h.console.CloseScanner(); err != nil {
		h.logger.Warn("release camera error", zap.Error(err))
	}
	h.writeState(w, http.StatusOK)
}

// SubmitCode ищет заказ по коду, введённому вручную.
func (h *Handler) SubmitCode(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: http.StatusText(http.StatusBadRequest)})
		return
	}

	if err := h.console.SubmitManualCode(r.Context(), req.Code); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeState(w, http.StatusOK)
}

// PushPayload передаёт кадр, распознанный в браузере, активному сеансу сканера.
func (h *Handler) PushPayload(w http.ResponseWriter, r *http.Request) {
	var req payloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: http.StatusText(http.StatusBadRequest)})
		return
	}

	if err := h.frames.Push(req.Payload); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeState(w, http.StatusOK)
}

// OpenOrder открывает карточку заказа из текущего списка.
func (h *Handler) OpenOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.console.OpenOrder(chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeState(w, http.StatusOK)
}

// CloseDetail закрывает карточку заказа.
func (h *Handler) CloseDetail(w http.ResponseWriter, r *http.Request) {
	h.console.CloseDetail()
	h.writeState(w, http.StatusOK)
}

// UpdateStatus переводит открытый заказ в новый статус.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.Status.Valid() {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: http.StatusText(http.StatusBadRequest)})
		return
	}

	if req.Reason != "" {
		if !req.Reason.Valid() {
			h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unknown refusal reason"})
			return
		}
		if err := h.console.SetRefusal(req.Reason, req.Details); err != nil {
			h.writeError(w, err)
			return
		}
	}

	if err := h.console.UpdateStatus(r.Context(), req.Status); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeState(w, http.StatusOK)
}

// GetHistory возвращает страницу истории доставок.
// Параметры: page, limit, status, from и to в формате YYYY-MM-DD.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	f, err := parseHistoryFilter(r)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	page, err := h.console.History(r.Context(), f)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, page)
}

// GetTheme возвращает текущую тему.
func (h *Handler) GetTheme(w http.ResponseWriter, r *http.Request) {
	h.writeTheme(w)
}

// ChangeTheme выбирает именованную палитру.
func (h *Handler) ChangeTheme(w http.ResponseWriter, r *http.Request) {
	var req paletteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: http.StatusText(http.StatusBadRequest)})
		return
	}

	if err := h.themes.ChangeTheme(r.Context(), req.Palette); err != nil {
		if errors.Is(err, theme.ErrUnknownPalette) {
			h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		h.logger.Error("change theme error", zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: http.StatusText(http.StatusInternalServerError)})
		return
	}
	h.writeTheme(w)
}

// ToggleDarkMode переключает тёмный режим.
func (h *Handler) ToggleDarkMode(w http.ResponseWriter, r *http.Request) {
	if _, err := h.themes.ToggleDarkMode(r.Context()); err != nil {
		h.logger.Error("toggle dark mode error", zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: http.StatusText(http.StatusInternalServerError)})
		return
	}
	h.writeTheme(w)
}

// GetCategories возвращает карточки категорий каталога.
func (h *Handler) GetCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.GetCategories(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, catalog.NewCards(categories))
}

func parseHistoryFilter(r *http.Request) (livreur.HistoryFilter, error) {
	q := r.URL.Query()
	var f livreur.HistoryFilter

	for name, dst := range map[string]*int{"page": &f.Page, "limit": &f.Limit} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return f, errors.New("invalid " + name)
		}
		*dst = n
	}

	if s := model.OrderStatus(q.Get("status")); s != "" {
		if !s.Valid() {
			return f, errors.New("invalid status")
		}
		f.Status = s
	}

	for name, dst := range map[string]*time.Time{"from": &f.From, "to": &f.To} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return f, errors.New("invalid " + name)
		}
		*dst = t
	}
	return f, nil
}

func (h *Handler) writeState(w http.ResponseWriter, status int) {
	st := h.console.Snapshot()
	st.Toasts = h.console.TakeToasts()
	h.writeJSON(w, status, st)
}

func (h *Handler) writeTheme(w http.ResponseWriter) {
	h.writeJSON(w, http.StatusOK, themeResponse{
		ThemeSelection: h.themes.Selection(),
		Colors:         h.themes.ActiveColors(),
		Palettes:       theme.PaletteNames(),
	})
}

// writeError переводит ошибку операции в код ответа консоли.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var reqErr *livreur.RequestError

	switch {
	case errors.Is(err, validation.ErrEmptyCode):
		h.writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: dashboard.MsgEmptyCode})
	case errors.Is(err, orderview.ErrReasonRequired),
		errors.Is(err, orderview.ErrTransitionNotAllowed):
		h.writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	case errors.Is(err, orderview.ErrSubmitting),
		errors.Is(err, dashboard.ErrNoOrderOpen),
		errors.Is(err, dashboard.ErrAvailabilityPending),
		errors.Is(err, scanner.ErrCameraInactive):
		h.writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, dashboard.ErrOrderNotInList):
		h.writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.As(err, &reqErr):
		h.writeJSON(w, http.StatusBadGateway, errorResponse{Error: reqErr.Message})
	case errors.Is(err, livreur.ErrOrderNotFound):
		h.writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
	default:
		h.logger.Error("console request error", zap.Error(err))
		h.writeJSON(w, http.StatusBadGateway, errorResponse{Error: dashboard.MsgConnectionError})
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response error", zap.Error(err))
	}
}

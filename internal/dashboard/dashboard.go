// Package dashboard реализует главный экран курьера: сводку, список заказов,
// доступность, сканер кодов и карточку заказа.
package dashboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/livreur-console/internal/livreur"
	"github.com/mmeshcher/livreur-console/internal/model"
	"github.com/mmeshcher/livreur-console/internal/orderview"
	"github.com/mmeshcher/livreur-console/internal/scanner"
	"github.com/mmeshcher/livreur-console/internal/validation"
)

// Сообщения, показываемые курьеру.
const (
	MsgConnectionError = "Erreur de connexion"
	MsgEmptyCode       = "Veuillez saisir un code"
	MsgAvailable       = "Vous êtes maintenant disponible"
	MsgUnavailable     = "Vous êtes maintenant indisponible"
	MsgStatusUpdated   = "Statut mis à jour"
	MsgOrderFound      = "Commande trouvée"
)

const maxToasts = 5

var (
	// ErrNoOrderOpen возвращается при смене статуса без открытой карточки.
	ErrNoOrderOpen = errors.New("no order open")
	// ErrOrderNotInList возвращается, если заказа нет в текущем списке.
	ErrOrderNotInList = errors.New("order not in list")
	// ErrAvailabilityPending возвращается, пока предыдущее переключение
	// доступности не завершилось.
	ErrAvailabilityPending = errors.New("availability change already in progress")
)

// API описывает операции сервера, которые использует экран.
type API interface {
	GetDashboard(ctx context.Context) (*model.Dashboard, error)
	GetMyOrders(ctx context.Context, f livreur.OrderFilter) ([]model.Order, error)
	ScanCode(ctx context.Context, code string) (*model.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, upd livreur.StatusUpdate) error
	GetHistory(ctx context.Context, f livreur.HistoryFilter) (*model.HistoryPage, error)
	SetAvailability(ctx context.Context, available bool) error
}

// ScannerMode описывает, какая форма поиска кода открыта.
type ScannerMode string

const (
	ScannerClosed ScannerMode = "closed"
	ScannerCamera ScannerMode = "camera"
	ScannerManual ScannerMode = "manual"
)

// ToastKind описывает тип всплывающего сообщения.
type ToastKind string

const (
	ToastSuccess ToastKind = "success"
	ToastError   ToastKind = "error"
)

// Toast описывает всплывающее сообщение.
type Toast struct {
	Kind    ToastKind `json:"kind"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Dashboard хранит состояние экрана курьера. Методы безопасны для
// конкурентного вызова.
type Dashboard struct {
	api     API
	logger  *zap.Logger
	scanner *scanner.Scanner

	mu          sync.Mutex
	summary     *model.Dashboard
	orders      []model.Order
	isAvailable bool
	toggling    bool
	mode        ScannerMode
	lookupErr   string
	detail      *orderview.View
	toasts      []Toast
}

// New создаёт экран поверх клиента API и камеры.
func New(api API, camera scanner.Camera, logger *zap.Logger) *Dashboard {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dashboard{
		api:    api,
		logger: logger,
		mode:   ScannerClosed,
		orders: []model.Order{},
	}
	d.scanner = scanner.New(camera, d.lookup, d.onScannerClosed)
	return d
}

// Load параллельно загружает сводку и список заказов. Ошибка одной загрузки
// не отменяет другую: ошибка сводки показывается сообщением, ошибка списка
// оставляет список пустым.
func (d *Dashboard) Load(ctx context.Context) error {
	var (
		g          errgroup.Group
		summary    *model.Dashboard
		summaryErr error
		orders     []model.Order
		ordersErr  error
	)

	g.Go(func() error {
		summary, summaryErr = d.api.GetDashboard(ctx)
		return nil
	})
	g.Go(func() error {
		orders, ordersErr = d.api.GetMyOrders(ctx, livreur.OrderFilter{})
		return nil
	})
	_ = g.Wait()

	d.mu.Lock()
	defer d.mu.Unlock()

	if summaryErr != nil {
		d.logger.Error("load dashboard error", zap.Error(summaryErr))
		d.toastLocked(ToastError, messageFor(summaryErr))
	} else {
		d.summary = summary
		d.isAvailable = summary.Livreur.IsAvailable
	}

	d.setOrdersLocked(orders, ordersErr)

	return summaryErr
}

func (d *Dashboard) refreshOrders(ctx context.Context) {
	orders, err := d.api.GetMyOrders(ctx, livreur.OrderFilter{})

	d.mu.Lock()
	defer d.mu.Unlock()
	d.setOrdersLocked(orders, err)
}

func (d *Dashboard) setOrdersLocked(orders []model.Order, err error) {
	if err != nil {
		d.logger.Warn("load orders error", zap.Error(err))
		d.orders = []model.Order{}
		return
	}
	if orders == nil {
		orders = []model.Order{}
	}
	d.orders = orders
}

// ToggleAvailability переключает доступность курьера. Локальный флаг
// меняется только после подтверждения сервером. Пока запрос не завершён,
// повторное переключение отклоняется с ErrAvailabilityPending.
func (d *Dashboard) ToggleAvailability(ctx context.Context) error {
	d.mu.Lock()
	if d.toggling {
		d.mu.Unlock()
		return ErrAvailabilityPending
	}
	d.toggling = true
	next := !d.isAvailable
	d.mu.Unlock()

	err := d.api.SetAvailability(ctx, next)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.toggling = false

	if err != nil {
		d.logger.Error("set availability error", zap.Error(err), zap.Bool("available", next))
		d.toastLocked(ToastError, messageFor(err))
		return err
	}

	d.isAvailable = next
	if next {
		d.toastLocked(ToastSuccess, MsgAvailable)
	} else {
		d.toastLocked(ToastSuccess, MsgUnavailable)
	}
	return nil
}

// OpenScanner открывает сканер и запускает камеру. Ошибка камеры
// возвращается, но форма остаётся открытой, и ручной ввод доступен.
func (d *Dashboard) OpenScanner(ctx context.Context) error {
	d.mu.Lock()
	d.mode = ScannerCamera
	d.lookupErr = ""
	d.mu.Unlock()

	if err := d.scanner.Open(ctx); err != nil {
		d.logger.Warn("camera unavailable", zap.Error(err))
		return err
	}
	return nil
}

// OpenManualEntry открывает форму ручного ввода и освобождает камеру.
func (d *Dashboard) OpenManualEntry() error {
	err := d.scanner.Release()

	d.mu.Lock()
	d.mode = ScannerManual
	d.lookupErr = ""
	d.mu.Unlock()

	return err
}

// CloseScanner закрывает форму поиска кода.
func (d *Dashboard) CloseScanner() error {
	return d.scanner.Close()
}

func (d *Dashboard) onScannerClosed() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.mode = ScannerClosed
	d.lookupErr = ""
}

// SubmitManualCode ищет заказ по коду, введённому вручную.
// Пустой код отклоняется без запроса к серверу.
func (d *Dashboard) SubmitManualCode(ctx context.Context, input string) error {
	_, err := d.scanner.SubmitManual(ctx, input)
	if errors.Is(err, validation.ErrEmptyCode) {
		d.mu.Lock()
		d.lookupErr = MsgEmptyCode
		d.mu.Unlock()
	}
	return err
}

// lookup ищет заказ по коду. При успехе открывается карточка и закрывается
// сканер, при ошибке сканер остаётся открытым для повтора.
func (d *Dashboard) lookup(ctx context.Context, code string) error {
	order, err := d.api.ScanCode(ctx, code)
	if err != nil {
		msg := messageFor(err)
		d.logger.Info("delivery code lookup failed", zap.String("code", code), zap.Error(err))

		d.mu.Lock()
		d.lookupErr = msg
		d.toastLocked(ToastError, msg)
		d.mu.Unlock()
		return err
	}

	if err := d.scanner.Release(); err != nil {
		d.logger.Warn("release camera error", zap.Error(err))
	}

	d.mu.Lock()
	d.detail = orderview.New(*order)
	d.mode = ScannerClosed
	d.lookupErr = ""
	d.toastLocked(ToastSuccess, MsgOrderFound)
	d.mu.Unlock()

	return nil
}

// OpenOrder открывает карточку заказа из текущего списка.
func (d *Dashboard) OpenOrder(orderID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, o := range d.orders {
		if o.ID == orderID {
			d.detail = orderview.New(o)
			return nil
		}
	}
	return ErrOrderNotInList
}

// CloseDetail закрывает карточку заказа и сбрасывает её состояние.
func (d *Dashboard) CloseDetail() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.detail = nil
}

// SetRefusal выбирает причину отказа в открытой карточке.
func (d *Dashboard) SetRefusal(reason model.RefusalReason, details string) error {
	d.mu.Lock()
	v := d.detail
	d.mu.Unlock()

	if v == nil {
		return ErrNoOrderOpen
	}
	return v.SetRefusal(reason, details)
}

// UpdateStatus отправляет переход статуса открытого заказа, затем заново
// загружает список заказов и закрывает карточку.
func (d *Dashboard) UpdateStatus(ctx context.Context, to model.OrderStatus) error {
	d.mu.Lock()
	v := d.detail
	d.mu.Unlock()

	if v == nil {
		return ErrNoOrderOpen
	}

	err := v.Submit(ctx, to, d.api.UpdateOrderStatus)
	if err != nil {
		if isClientSideRejection(err) {
			return err
		}
		d.logger.Error("update status error",
			zap.Error(err),
			zap.String("order", v.Order().ID),
			zap.String("status", string(to)),
		)
		d.mu.Lock()
		d.toastLocked(ToastError, messageFor(err))
		d.mu.Unlock()
		return err
	}

	d.refreshOrders(ctx)

	d.mu.Lock()
	if d.detail == v {
		d.detail = nil
	}
	d.toastLocked(ToastSuccess, MsgStatusUpdated)
	d.mu.Unlock()

	return nil
}

// History возвращает страницу истории доставок.
func (d *Dashboard) History(ctx context.Context, f livreur.HistoryFilter) (*model.HistoryPage, error) {
	page, err := d.api.GetHistory(ctx, f)
	if err != nil {
		d.mu.Lock()
		d.toastLocked(ToastError, messageFor(err))
		d.mu.Unlock()
		return nil, err
	}
	return page, nil
}

// Close освобождает камеру при завершении работы.
func (d *Dashboard) Close() error {
	return d.scanner.Release()
}

func (d *Dashboard) toastLocked(kind ToastKind, msg string) {
	d.toasts = append(d.toasts, Toast{Kind: kind, Message: msg, At: time.Now()})
	if len(d.toasts) > maxToasts {
		d.toasts = d.toasts[len(d.toasts)-maxToasts:]
	}
}

// TakeToasts возвращает накопленные сообщения и очищает очередь.
func (d *Dashboard) TakeToasts() []Toast {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := d.toasts
	d.toasts = nil
	return out
}

func isClientSideRejection(err error) bool {
	return errors.Is(err, orderview.ErrReasonRequired) ||
		errors.Is(err, orderview.ErrSubmitting) ||
		errors.Is(err, orderview.ErrTransitionNotAllowed)
}

// messageFor возвращает текст ошибки для курьера: сообщение сервера
// показывается как есть, сетевые ошибки заменяются общим текстом.
func messageFor(err error) string {
	if reqErr, ok := livreur.IsRequestError(err); ok {
		return reqErr.Message
	}
	if errors.Is(err, livreur.ErrOrderNotFound) {
		return livreur.ErrOrderNotFound.Error()
	}
	return MsgConnectionError
}

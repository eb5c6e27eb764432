// Package orderview содержит карточку заказа и допустимые переходы статусов доставки.
package orderview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/mmeshcher/livreur-console/internal/livreur"
	"github.com/mmeshcher/livreur-console/internal/model"
)

var (
	// ErrTransitionNotAllowed возвращается при попытке перехода, которого нет в таблице.
	ErrTransitionNotAllowed = errors.New("status transition not allowed")
	// ErrReasonRequired возвращается при отказе без выбранной причины.
	ErrReasonRequired = errors.New("refusal reason required")
	// ErrSubmitting возвращается, пока предыдущая отправка не завершилась.
	ErrSubmitting = errors.New("status update already in progress")
)

// Transition описывает кнопку перехода в следующий статус.
type Transition struct {
	To             model.OrderStatus `json:"to"`
	Label          string            `json:"label"`
	RequiresReason bool              `json:"requiresReason"`
}

var transitions = map[model.OrderStatus][]Transition{
	model.StatusAssigned: {
		{To: model.StatusPickedUp, Label: "Colis récupéré"},
	},
	model.StatusPickedUp: {
		{To: model.StatusOutForDelivery, Label: "Partir en livraison"},
	},
	model.StatusOutForDelivery: {
		{To: model.StatusDelivered, Label: "Livré"},
		{To: model.StatusRefused, Label: "Refusé", RequiresReason: true},
	},
	model.StatusDeliveryAttempted: {
		{To: model.StatusOutForDelivery, Label: "Nouvelle tentative"},
		{To: model.StatusReturned, Label: "Retour à l'entrepôt"},
	},
	model.StatusRefused: {
		{To: model.StatusReturned, Label: "Retour à l'entrepôt"},
	},
}

// Transitions возвращает переходы, доступные из статуса.
func Transitions(from model.OrderStatus) []Transition {
	src := transitions[from]
	out := make([]Transition, len(src))
	copy(out, src)
	return out
}

// Allowed сообщает, допустим ли переход from → to.
func Allowed(from, to model.OrderStatus) bool {
	for _, t := range transitions[from] {
		if t.To == to {
			return true
		}
	}
	return false
}

// UpdateFunc отправляет смену статуса на сервер.
type UpdateFunc func(ctx context.Context, orderID string, upd livreur.StatusUpdate) error

// View хранит состояние карточки одного заказа.
type View struct {
	mu         sync.Mutex
	order      model.Order
	reason     model.RefusalReason
	details    string
	submitting bool
}

// New открывает карточку заказа.
func New(order model.Order) *View {
	return &View{order: order}
}

// Snapshot содержит неизменяемую копию состояния карточки.
type Snapshot struct {
	Order       model.Order         `json:"order"`
	Transitions []Transition        `json:"transitions"`
	Reason      model.RefusalReason `json:"reason,omitempty"`
	Details     string              `json:"details,omitempty"`
	Submitting  bool                `json:"submitting"`
}

// Snapshot возвращает копию состояния.
func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return Snapshot{
		Order:       v.order,
		Transitions: Transitions(v.order.Status),
		Reason:      v.reason,
		Details:     v.details,
		Submitting:  v.submitting,
	}
}

// Order возвращает заказ карточки.
func (v *View) Order() model.Order {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.order
}

// SetRefusal выбирает причину отказа и комментарий к нему.
func (v *View) SetRefusal(reason model.RefusalReason, details string) error {
	if reason != "" && !reason.Valid() {
		return fmt.Errorf("unknown refusal reason: %s", reason)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.reason = reason
	v.details = strings.TrimSpace(details)
	return nil
}

// CanSubmit сообщает, доступна ли кнопка перехода в статус to.
func (v *View) CanSubmit(to model.OrderStatus) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.checkLocked(to) == nil
}

func (v *View) checkLocked(to model.OrderStatus) error {
	if v.submitting {
		return ErrSubmitting
	}
	if !Allowed(v.order.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrTransitionNotAllowed, v.order.Status, to)
	}
	if to == model.StatusRefused && v.reason == "" {
		return ErrReasonRequired
	}
	return nil
}

// Submit отправляет переход через fn. Пока отправка не завершилась,
// все переходы карточки заблокированы.
func (v *View) Submit(ctx context.Context, to model.OrderStatus, fn UpdateFunc) error {
	v.mu.Lock()
	if err := v.checkLocked(to); err != nil {
		v.mu.Unlock()
		return err
	}
	v.submitting = true
	upd := livreur.StatusUpdate{Status: to}
	if to == model.StatusRefused {
		upd.RefusalReason = v.reason
		upd.RefusalDetails = v.details
	}
	orderID := v.order.ID
	v.mu.Unlock()

	err := fn(ctx, orderID, upd)

	v.mu.Lock()
	v.submitting = false
	if err == nil {
		v.order.Status = to
	}
	v.mu.Unlock()

	return err
}

package livreur

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mmeshcher/livreur-console/internal/model"
)

const basePath = "/livreur"

// ErrOrderNotFound возвращается, если сервер ответил успехом без заказа.
var ErrOrderNotFound = errors.New("Commande introuvable")

// OrderFilter задаёт параметры выборки текущих заказов.
type OrderFilter struct {
	Status model.OrderStatus
	Limit  int
}

func (f OrderFilter) values() url.Values {
	v := url.Values{}
	if f.Status != "" {
		v.Set("status", string(f.Status))
	}
	if f.Limit > 0 {
		v.Set("limit", strconv.Itoa(f.Limit))
	}
	return v
}

// HistoryFilter задаёт параметры выборки истории доставок.
type HistoryFilter struct {
	Page   int
	Limit  int
	Status model.OrderStatus
	From   time.Time
	To     time.Time
}

func (f HistoryFilter) values() url.Values {
	v := url.Values{}
	if f.Page > 0 {
		v.Set("page", strconv.Itoa(f.Page))
	}
	if f.Limit > 0 {
		v.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.Status != "" {
		v.Set("status", string(f.Status))
	}
	if !f.From.IsZero() {
		v.Set("startDate", f.From.Format("2006-01-02"))
	}
	if !f.To.IsZero() {
		v.Set("endDate", f.To.Format("2006-01-02"))
	}
	return v
}

// StatusUpdate описывает тело запроса смены статуса.
type StatusUpdate struct {
	Status         model.OrderStatus   `json:"status"`
	RefusalReason  model.RefusalReason `json:"refusalReason,omitempty"`
	RefusalDetails string              `json:"refusalDetails,omitempty"`
	Note           string              `json:"note,omitempty"`
}

// GetDashboard возвращает сводку за день и профиль курьера.
func (c *Client) GetDashboard(ctx context.Context) (*model.Dashboard, error) {
	var d model.Dashboard
	if err := c.Do(ctx, http.MethodGet, basePath+"/dashboard", nil, nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// GetMyOrders возвращает заказы, находящиеся у курьера в работе.
func (c *Client) GetMyOrders(ctx context.Context, f OrderFilter) ([]model.Order, error) {
	var resp struct {
		Orders []model.Order `json:"orders"`
	}
	if err := c.Do(ctx, http.MethodGet, basePath+"/orders", f.values(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Orders, nil
}

// ScanCode ищет заказ по коду доставки.
func (c *Client) ScanCode(ctx context.Context, code string) (*model.Order, error) {
	var resp struct {
		Order *model.Order `json:"order"`
	}
	if err := c.Do(ctx, http.MethodGet, basePath+"/scan/"+url.PathEscape(code), nil, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Order == nil {
		return nil, ErrOrderNotFound
	}
	return resp.Order, nil
}

// UpdateOrderStatus переводит заказ в новый статус.
func (c *Client) UpdateOrderStatus(ctx context.Context, orderID string, upd StatusUpdate) error {
	path := basePath + "/orders/" + url.PathEscape(orderID) + "/status"
	return c.Do(ctx, http.MethodPut, path, nil, upd, nil)
}

// GetHistory возвращает страницу истории доставок.
func (c *Client) GetHistory(ctx context.Context, f HistoryFilter) (*model.HistoryPage, error) {
	var page model.HistoryPage
	if err := c.Do(ctx, http.MethodGet, basePath+"/history", f.values(), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// SetAvailability сообщает серверу о готовности курьера принимать заказы.
func (c *Client) SetAvailability(ctx context.Context, available bool) error {
	body := struct {
		IsAvailable bool `json:"isAvailable"`
	}{IsAvailable: available}
	return c.Do(ctx, http.MethodPut, basePath+"/availability", nil, body, nil)
}

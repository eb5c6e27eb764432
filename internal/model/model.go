// Package model содержит доменные сущности клиента курьера.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus описывает статус доставки заказа.
type OrderStatus string

const (
	StatusAssigned          OrderStatus = "assigned_to_delivery"
	StatusPickedUp          OrderStatus = "picked_up"
	StatusOutForDelivery    OrderStatus = "out_for_delivery"
	StatusDelivered         OrderStatus = "delivered"
	StatusDeliveryAttempted OrderStatus = "delivery_attempted"
	StatusRefused           OrderStatus = "refused"
	StatusReturned          OrderStatus = "returned"
)

var statusLabels = map[OrderStatus]string{
	StatusAssigned:          "Assignée",
	StatusPickedUp:          "Récupérée",
	StatusOutForDelivery:    "En livraison",
	StatusDelivered:         "Livrée",
	StatusDeliveryAttempted: "Tentative échouée",
	StatusRefused:           "Refusée",
	StatusReturned:          "Retournée",
}

// Valid проверяет, что статус входит в список известных.
func (s OrderStatus) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Label возвращает подпись статуса для отображения.
func (s OrderStatus) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// PaymentMethod описывает способ оплаты заказа.
type PaymentMethod string

const (
	PaymentCashOnDelivery PaymentMethod = "cash_on_delivery"
	PaymentPrepaid        PaymentMethod = "prepaid"
)

// Label возвращает подпись способа оплаты.
func (p PaymentMethod) Label() string {
	switch p {
	case PaymentCashOnDelivery:
		return "Paiement à la livraison"
	case PaymentPrepaid:
		return "Payé en ligne"
	default:
		return string(p)
	}
}

// RefusalReason описывает причину отказа получателя от посылки.
type RefusalReason string

const (
	ReasonNotHome        RefusalReason = "not_home"
	ReasonWrongAddress   RefusalReason = "wrong_address"
	ReasonDamaged        RefusalReason = "damaged"
	ReasonPaymentRefused RefusalReason = "payment_refused"
	ReasonOther          RefusalReason = "other"
)

// RefusalReasons перечисляет допустимые причины отказа в порядке отображения.
var RefusalReasons = [...]RefusalReason{
	ReasonNotHome, ReasonWrongAddress, ReasonDamaged, ReasonPaymentRefused, ReasonOther,
}

// Valid проверяет, что причина входит в список допустимых.
func (r RefusalReason) Valid() bool {
	for _, v := range RefusalReasons {
		if r == v {
			return true
		}
	}
	return false
}

// Label возвращает подпись причины отказа.
func (r RefusalReason) Label() string {
	switch r {
	case ReasonNotHome:
		return "Client absent"
	case ReasonWrongAddress:
		return "Adresse incorrecte"
	case ReasonDamaged:
		return "Colis endommagé"
	case ReasonPaymentRefused:
		return "Paiement refusé"
	case ReasonOther:
		return "Autre"
	default:
		return string(r)
	}
}

// Address содержит адрес доставки.
type Address struct {
	Street       string `json:"street"`
	City         string `json:"city"`
	PostalCode   string `json:"postalCode"`
	Phone        string `json:"phone"`
	Instructions string `json:"instructions,omitempty"`
}

// LineItem описывает позицию заказа.
type LineItem struct {
	Title    string          `json:"title"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// Subtotal возвращает стоимость позиции.
func (i LineItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order описывает заказ, назначенный курьеру.
type Order struct {
	ID              string          `json:"_id"`
	OrderNumber     string          `json:"orderNumber"`
	DeliveryCode    string          `json:"deliveryCode"`
	Status          OrderStatus     `json:"status"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod"`
	ShippingAddress Address         `json:"shippingAddress"`
	Items           []LineItem      `json:"items"`
	CustomerNote    string          `json:"customerNote,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// AmountToCollect возвращает сумму, которую курьер получает при вручении.
func (o Order) AmountToCollect() decimal.Decimal {
	if o.PaymentMethod == PaymentCashOnDelivery {
		return o.TotalAmount
	}
	return decimal.Zero
}

// Courier описывает профиль курьера.
type Courier struct {
	ID          string `json:"_id"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Phone       string `json:"phone"`
	VehicleType string `json:"vehicleType,omitempty"`
	IsAvailable bool   `json:"isAvailable"`
}

// TodayStats содержит сводку за текущий день.
type TodayStats struct {
	Assigned   int             `json:"assigned"`
	InProgress int             `json:"inProgress"`
	Delivered  int             `json:"delivered"`
	Refused    int             `json:"refused"`
	Earnings   decimal.Decimal `json:"earnings"`
}

// Dashboard содержит профиль курьера и его статистику.
type Dashboard struct {
	Livreur    Courier    `json:"livreur"`
	TodayStats TodayStats `json:"todayStats"`
}

// Pagination описывает страницу выдачи.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// HistoryPage содержит страницу истории доставок.
type HistoryPage struct {
	Orders     []Order    `json:"orders"`
	Pagination Pagination `json:"pagination"`
}

// Category описывает категорию каталога.
type Category struct {
	ID           string `json:"_id"`
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	Image        string `json:"image,omitempty"`
	Icon         string `json:"icon,omitempty"`
	ProductCount *int   `json:"productCount,omitempty"`
	Description  string `json:"description,omitempty"`
}

// ThemeSelection содержит выбор палитры и признак тёмного режима.
type ThemeSelection struct {
	Palette string `json:"palette"`
	Dark    bool   `json:"dark"`
}

// Package model содержит доменные сущности сервиса квикмарт.
package model

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// Цены и суммы хранятся в пайсах (минимальных денежных единицах).
const (
	// FreeDeliveryThreshold — сумма корзины, выше которой доставка бесплатна.
	FreeDeliveryThreshold int64 = 199 * 100
	// DeliveryFeeAmount — фиксированная стоимость доставки ниже порога.
	DeliveryFeeAmount int64 = 29 * 100
)

// EstimatedDeliveryMinutes — заявленное время доставки заказа.
const EstimatedDeliveryMinutes = 30

// Product описывает товар каталога. После загрузки каталога не изменяется.
type Product struct {
	ID          string
	Name        string
	Price       int64
	Category    string
	Image       string
	Description string
	InStock     bool
	CreatedAt   time.Time
}

// CartLine описывает одну позицию корзины. Цена фиксируется в момент добавления.
type CartLine struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unitPrice"`
	LineTotal int64  `json:"lineTotal"`
}

// Cart описывает корзину пользователя. Итоги всегда равны свёртке по позициям
// и пересчитываются внутри мутирующих методов вместе с UpdatedAt.
type Cart struct {
	ID          string
	UserID      string
	Lines       []CartLine
	TotalAmount int64
	TotalItems  int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewCart создаёт пустую корзину для указанного пользователя.
func NewCart(userID string) *Cart {
	now := time.Now()
	return &Cart{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddLine добавляет товар в корзину. Существующая позиция увеличивается на
// quantity, новая фиксирует текущую цену товара.
func (c *Cart) AddLine(p *Product, quantity int) {
	for i := range c.Lines {
		if c.Lines[i].ProductID == p.ID {
			c.Lines[i].Quantity += quantity
			c.Lines[i].LineTotal = c.Lines[i].UnitPrice * int64(c.Lines[i].Quantity)
			c.recalcTotals()
			return
		}
	}

	c.Lines = append(c.Lines, CartLine{
		ProductID: p.ID,
		Name:      p.Name,
		Quantity:  quantity,
		UnitPrice: p.Price,
		LineTotal: p.Price * int64(quantity),
	})
	c.recalcTotals()
}

// SetLineQuantity устанавливает количество позиции. Количество <= 0 удаляет
// позицию. Возвращает false, если позиции с таким товаром нет.
func (c *Cart) SetLineQuantity(productID string, quantity int) bool {
	for i := range c.Lines {
		if c.Lines[i].ProductID != productID {
			continue
		}
		if quantity <= 0 {
			c.RemoveLine(productID)
			return true
		}
		c.Lines[i].Quantity = quantity
		c.Lines[i].LineTotal = c.Lines[i].UnitPrice * int64(quantity)
		c.recalcTotals()
		return true
	}
	return false
}

// RemoveLine удаляет позицию с указанным товаром. Отсутствие позиции не ошибка.
func (c *Cart) RemoveLine(productID string) {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			break
		}
	}
	c.recalcTotals()
}

// Clear очищает корзину и обнуляет итоги.
func (c *Cart) Clear() {
	c.Lines = nil
	c.recalcTotals()
}

func (c *Cart) recalcTotals() {
	var amount int64
	var items int
	for _, l := range c.Lines {
		amount += l.LineTotal
		items += l.Quantity
	}
	c.TotalAmount = amount
	c.TotalItems = items
	c.UpdatedAt = time.Now()
}

// DeliveryFee возвращает стоимость доставки для указанной суммы корзины.
func DeliveryFee(totalAmount int64) int64 {
	if totalAmount > FreeDeliveryThreshold {
		return 0
	}
	return DeliveryFeeAmount
}

// CartSummary содержит корзину вместе с производными суммами доставки.
type CartSummary struct {
	Cart        *Cart
	DeliveryFee int64
	FinalAmount int64
}

// Summary возвращает корзину с рассчитанной стоимостью доставки и итогом к оплате.
func (c *Cart) Summary() *CartSummary {
	fee := DeliveryFee(c.TotalAmount)
	return &CartSummary{
		Cart:        c,
		DeliveryFee: fee,
		FinalAmount: c.TotalAmount + fee,
	}
}

// OrderStatus описывает статус обработки заказа.
type OrderStatus string

const (
	OrderStatusPlaced    OrderStatus = "placed"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusAssigned  OrderStatus = "assigned"
	OrderStatusPicked    OrderStatus = "picked"
	OrderStatusDelivered OrderStatus = "delivered"
)

var statusRank = map[OrderStatus]int{
	OrderStatusPlaced:    1,
	OrderStatusConfirmed: 2,
	OrderStatusAssigned:  3,
	OrderStatusPicked:    4,
	OrderStatusDelivered: 5,
}

// Valid сообщает, известен ли статус системе.
func (s OrderStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// Rank возвращает порядковый номер статуса в цепочке обработки заказа.
func (s OrderStatus) Rank() int {
	return statusRank[s]
}

// Order описывает заказ: снимок корзины плюс платёжные данные и адрес доставки.
// После создания изменяются только Status, DeliveryPartner и UpdatedAt.
type Order struct {
	ID               string
	OrderNumber      string
	UserID           string
	Lines            []CartLine
	TotalAmount      int64
	DeliveryFee      int64
	FinalAmount      int64
	PaymentID        string
	PaymentMethod    string
	DeliveryAddress  string
	Status           OrderStatus
	DeliveryPartner  string
	EstimatedMinutes int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewOrder создаёт заказ из снимка корзины. Позиции копируются: последующие
// изменения корзины не затрагивают заказ.
func NewOrder(userID string, summary *CartSummary, paymentID, paymentMethod, deliveryAddress string) *Order {
	lines := make([]CartLine, len(summary.Cart.Lines))
	copy(lines, summary.Cart.Lines)

	now := time.Now()
	return &Order{
		ID:               uuid.NewString(),
		OrderNumber:      generateOrderNumber(now),
		UserID:           userID,
		Lines:            lines,
		TotalAmount:      summary.Cart.TotalAmount,
		DeliveryFee:      summary.DeliveryFee,
		FinalAmount:      summary.FinalAmount,
		PaymentID:        paymentID,
		PaymentMethod:    paymentMethod,
		DeliveryAddress:  deliveryAddress,
		Status:           OrderStatusPlaced,
		EstimatedMinutes: EstimatedDeliveryMinutes,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// generateOrderNumber возвращает читаемый номер заказа: QM + последние шесть
// цифр метки времени + три случайные цифры. Уникальность best-effort.
func generateOrderNumber(now time.Time) string {
	ts := fmt.Sprintf("%d", now.UnixMilli())
	if len(ts) > 6 {
		ts = ts[len(ts)-6:]
	}
	return fmt.Sprintf("QM%s%03d", ts, rand.Intn(1000))
}

// TrackingStep описывает один шаг отображаемой шкалы доставки заказа.
type TrackingStep struct {
	Status    OrderStatus
	Message   string
	Timestamp time.Time
	Completed bool
}

// Tracking возвращает фиксированную шкалу из пяти шагов. Временные метки
// расчётные (CreatedAt + смещение), признак завершённости выводится из
// текущего статуса и назначенного курьера, а не из истории шагов.
func (o *Order) Tracking() []TrackingStep {
	partner := o.DeliveryPartner
	if partner == "" {
		partner = "Pending"
	}

	return []TrackingStep{
		{
			Status:    OrderStatusPlaced,
			Message:   "Order placed successfully",
			Timestamp: o.CreatedAt,
			Completed: true,
		},
		{
			Status:    OrderStatusConfirmed,
			Message:   "Order confirmed by store",
			Timestamp: o.CreatedAt.Add(2 * time.Minute),
			Completed: o.Status != OrderStatusPlaced,
		},
		{
			Status:    OrderStatusAssigned,
			Message:   "Assigned to delivery partner: " + partner,
			Timestamp: o.CreatedAt.Add(5 * time.Minute),
			Completed: o.DeliveryPartner != "",
		},
		{
			Status:    OrderStatusPicked,
			Message:   "Order picked up by delivery partner",
			Timestamp: o.CreatedAt.Add(10 * time.Minute),
			Completed: o.Status == OrderStatusPicked || o.Status == OrderStatusDelivered,
		},
		{
			Status:    OrderStatusDelivered,
			Message:   "Order delivered successfully",
			Timestamp: o.CreatedAt.Add(30 * time.Minute),
			Completed: o.Status == OrderStatusDelivered,
		},
	}
}

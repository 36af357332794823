// Package payment содержит заглушку платёжного шлюза сервиса квикмарт.
// Подписи не проверяются, любой платёж считается успешным.
package payment

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidPayment возвращается при неполных платёжных данных.
var ErrInvalidPayment = errors.New("invalid payment data")

const defaultCurrency = "INR"

// Stub имитирует платёжный шлюз: создаёт платёжные заказы и подтверждает
// платежи без реальной верификации.
type Stub struct {
	keyID string
}

// NewStub создаёт заглушку платёжного шлюза с указанным публичным ключом.
func NewStub(keyID string) *Stub {
	if keyID == "" {
		keyID = "qm_test_dummy_key"
	}
	return &Stub{keyID: keyID}
}

// KeyID возвращает публичный ключ шлюза для клиентской стороны.
func (s *Stub) KeyID() string {
	return s.keyID
}

// PaymentOrder описывает синтетический платёжный заказ.
type PaymentOrder struct {
	ID        string `json:"id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Receipt   string `json:"receipt"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"created_at"`
}

// Payment описывает подтверждённый платёж.
type Payment struct {
	PaymentID  string    `json:"paymentId"`
	OrderID    string    `json:"orderId"`
	Amount     int64     `json:"amount"`
	Status     string    `json:"status"`
	Method     string    `json:"method"`
	VerifiedAt time.Time `json:"verifiedAt"`
}

// Method описывает доступный способ оплаты.
type Method struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Icon    string `json:"icon"`
	Enabled bool   `json:"enabled"`
}

// CreateOrder создаёт синтетический платёжный заказ. Всегда успешен при
// корректных входных данных.
func (s *Stub) CreateOrder(amount int64, currency, userID string) (*PaymentOrder, error) {
	if amount <= 0 || userID == "" {
		return nil, ErrInvalidPayment
	}
	if currency == "" {
		currency = defaultCurrency
	}

	now := time.Now()
	return &PaymentOrder{
		ID:        "order_" + shortID(),
		Amount:    amount,
		Currency:  currency,
		Receipt:   "receipt_" + now.Format("20060102150405"),
		Status:    "created",
		CreatedAt: now.UnixMilli(),
	}, nil
}

// Verify подтверждает платёж. Подпись игнорируется, результат всегда успешен.
func (s *Stub) Verify(orderID, paymentID string, amount int64) (*Payment, error) {
	if orderID == "" || paymentID == "" {
		return nil, ErrInvalidPayment
	}

	return &Payment{
		PaymentID:  paymentID,
		OrderID:    orderID,
		Amount:     amount,
		Status:     "success",
		Method:     "card",
		VerifiedAt: time.Now(),
	}, nil
}

// SimulateSuccess фабрикует успешный платёж для демонстрационного сценария.
func (s *Stub) SimulateSuccess(orderID string, amount int64) *Payment {
	return &Payment{
		PaymentID:  "pay_" + shortID(),
		OrderID:    orderID,
		Amount:     amount,
		Status:     "success",
		Method:     "dummy",
		VerifiedAt: time.Now(),
	}
}

// Methods возвращает фиксированный список способов оплаты.
func (s *Stub) Methods() []Method {
	return []Method{
		{ID: "card", Name: "Credit/Debit Card", Icon: "💳", Enabled: true},
		{ID: "upi", Name: "UPI", Icon: "📱", Enabled: true},
		{ID: "netbanking", Name: "Net Banking", Icon: "🏦", Enabled: true},
		{ID: "wallet", Name: "Wallet", Icon: "👛", Enabled: true},
		{ID: "cod", Name: "Cash on Delivery", Icon: "💵", Enabled: false},
	}
}

func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:14]
}

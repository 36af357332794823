// Package handler содержит HTTP-обработчики API сервиса квикмарт.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/quickmart-system/internal/catalog"
	"github.com/mmeshcher/quickmart-system/internal/model"
	"github.com/mmeshcher/quickmart-system/internal/payment"
	"github.com/mmeshcher/quickmart-system/internal/repository"
	"github.com/mmeshcher/quickmart-system/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	GetCart(ctx context.Context, userID string) (*model.CartSummary, error)
	AddItem(ctx context.Context, userID, productID string, quantity int) (*model.CartSummary, error)
	UpdateQuantity(ctx context.Context, userID, productID string, quantity int) (*model.CartSummary, error)
	RemoveItem(ctx context.Context, userID, productID string) (*model.CartSummary, error)
	ClearCart(ctx context.Context, userID string) (*model.CartSummary, error)
	CreateOrder(ctx context.Context, userID, paymentID, paymentMethod, deliveryAddress string) (*model.Order, error)
	GetOrder(ctx context.Context, orderID string) (*model.Order, error)
	GetOrdersByUser(ctx context.Context, userID string) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status model.OrderStatus) (*model.Order, error)
	AssignDeliveryPartner(ctx context.Context, orderID, partnerName string) (*model.Order, error)
	TrackOrder(ctx context.Context, orderID string) (*model.Order, []model.TrackingStep, error)
}

// Handler реализует HTTP-обработчики API сервиса квикмарт.
type Handler struct {
	service  Service
	catalog  *catalog.Catalog
	payments *payment.Stub
	logger   *zap.Logger
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, cat *catalog.Catalog, payments *payment.Stub, logger *zap.Logger) *Handler {
	return &Handler{
		service:  s,
		catalog:  cat,
		payments: payments,
		logger:   logger,
	}
}

// rupees переводит сумму из пайсов в рупии для сериализации.
func rupees(v int64) float64 {
	return float64(v) / 100
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("encode response error", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]any{
		"success": false,
		"message": message,
	})
}

// handleServiceError переводит ошибку бизнес-логики в HTTP-статус.
func (h *Handler) handleServiceError(w http.ResponseWriter, err error, logMsg string) {
	switch {
	case errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, repository.ErrCartNotFound),
		errors.Is(err, repository.ErrOrderNotFound),
		errors.Is(err, service.ErrLineNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrProductOutOfStock),
		errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, payment.ErrInvalidPayment):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidTransition):
		h.writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error(logMsg, zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}
}

type productResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	Image       string  `json:"image"`
	Description string  `json:"description"`
	InStock     bool    `json:"inStock"`
}

func toProductResponse(p model.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Price:       rupees(p.Price),
		Category:    p.Category,
		Image:       p.Image,
		Description: p.Description,
		InStock:     p.InStock,
	}
}

// GetProducts возвращает список товаров каталога, опционально по категории.
func (h *Handler) GetProducts(w http.ResponseWriter, r *http.Request) {
	products := h.catalog.Products()
	if category := r.URL.Query().Get("category"); category != "" {
		products = h.catalog.ProductsByCategory(category)
	}

	resp := make([]productResponse, 0, len(products))
	for _, p := range products {
		resp = append(resp, toProductResponse(p))
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"products": resp,
		"total":    len(resp),
	})
}

// GetProduct возвращает один товар каталога.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")

	p, err := h.catalog.FindProduct(productID)
	if err != nil {
		h.handleServiceError(w, err, "get product error")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"product": toProductResponse(*p),
	})
}

type cartLineResponse struct {
	ProductID  string  `json:"productId"`
	Name       string  `json:"name"`
	Quantity   int     `json:"quantity"`
	Price      float64 `json:"price"`
	TotalPrice float64 `json:"totalPrice"`
}

type cartResponse struct {
	ID          string             `json:"id"`
	UserID      string             `json:"userId"`
	Items       []cartLineResponse `json:"items"`
	TotalAmount float64            `json:"totalAmount"`
	TotalItems  int                `json:"totalItems"`
	DeliveryFee float64            `json:"deliveryFee"`
	FinalAmount float64            `json:"finalAmount"`
}

func toCartResponse(s *model.CartSummary) cartResponse {
	items := make([]cartLineResponse, 0, len(s.Cart.Lines))
	for _, l := range s.Cart.Lines {
		items = append(items, cartLineResponse{
			ProductID:  l.ProductID,
			Name:       l.Name,
			Quantity:   l.Quantity,
			Price:      rupees(l.UnitPrice),
			TotalPrice: rupees(l.LineTotal),
		})
	}

	return cartResponse{
		ID:          s.Cart.ID,
		UserID:      s.Cart.UserID,
		Items:       items,
		TotalAmount: rupees(s.Cart.TotalAmount),
		TotalItems:  s.Cart.TotalItems,
		DeliveryFee: rupees(s.DeliveryFee),
		FinalAmount: rupees(s.FinalAmount),
	}
}

func (h *Handler) writeCart(w http.ResponseWriter, summary *model.CartSummary, message string) {
	payload := map[string]any{
		"success": true,
		"cart":    toCartResponse(summary),
	}
	if message != "" {
		payload["message"] = message
	}
	h.writeJSON(w, http.StatusOK, payload)
}

// GetCart возвращает корзину пользователя, создавая пустую при первом обращении.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	summary, err := h.service.GetCart(r.Context(), userID)
	if err != nil {
		h.handleServiceError(w, err, "get cart error")
		return
	}

	h.writeCart(w, summary, "")
}

type addItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  *int   `json:"quantity"`
}

// AddItem добавляет товар в корзину пользователя.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.ProductID == "" {
		h.writeError(w, http.StatusBadRequest, "product ID is required")
		return
	}

	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	summary, err := h.service.AddItem(r.Context(), userID, req.ProductID, quantity)
	if err != nil {
		h.handleServiceError(w, err, "add item error")
		return
	}

	h.writeCart(w, summary, "Item added to cart successfully")
}

type updateItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  *int   `json:"quantity"`
}

// UpdateItem устанавливает количество позиции корзины.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.ProductID == "" || req.Quantity == nil {
		h.writeError(w, http.StatusBadRequest, "product ID and quantity are required")
		return
	}

	summary, err := h.service.UpdateQuantity(r.Context(), userID, req.ProductID, *req.Quantity)
	if err != nil {
		h.handleServiceError(w, err, "update cart error")
		return
	}

	h.writeCart(w, summary, "Cart updated successfully")
}

// RemoveItem удаляет позицию из корзины пользователя.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	productID := chi.URLParam(r, "productID")

	summary, err := h.service.RemoveItem(r.Context(), userID, productID)
	if err != nil {
		h.handleServiceError(w, err, "remove item error")
		return
	}

	h.writeCart(w, summary, "Item removed from cart successfully")
}

// ClearCart очищает корзину пользователя.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	summary, err := h.service.ClearCart(r.Context(), userID)
	if err != nil {
		h.handleServiceError(w, err, "clear cart error")
		return
	}

	h.writeCart(w, summary, "Cart cleared successfully")
}

type orderResponse struct {
	ID               string             `json:"id"`
	OrderNumber      string             `json:"orderNumber"`
	UserID           string             `json:"userId"`
	Items            []cartLineResponse `json:"items"`
	TotalAmount      float64            `json:"totalAmount"`
	DeliveryFee      float64            `json:"deliveryFee"`
	FinalAmount      float64            `json:"finalAmount"`
	PaymentID        string             `json:"paymentId"`
	PaymentMethod    string             `json:"paymentMethod"`
	DeliveryAddress  string             `json:"deliveryAddress"`
	Status           string             `json:"status"`
	DeliveryPartner  *string            `json:"deliveryPartner"`
	EstimatedMinutes int                `json:"estimatedDeliveryTime"`
	CreatedAt        string             `json:"createdAt"`
	UpdatedAt        string             `json:"updatedAt"`
}

func toOrderResponse(o *model.Order) orderResponse {
	items := make([]cartLineResponse, 0, len(o.Lines))
	for _, l := range o.Lines {
		items = append(items, cartLineResponse{
			ProductID:  l.ProductID,
			Name:       l.Name,
			Quantity:   l.Quantity,
			Price:      rupees(l.UnitPrice),
			TotalPrice: rupees(l.LineTotal),
		})
	}

	var partner *string
	if o.DeliveryPartner != "" {
		partner = &o.DeliveryPartner
	}

	return orderResponse{
		ID:               o.ID,
		OrderNumber:      o.OrderNumber,
		UserID:           o.UserID,
		Items:            items,
		TotalAmount:      rupees(o.TotalAmount),
		DeliveryFee:      rupees(o.DeliveryFee),
		FinalAmount:      rupees(o.FinalAmount),
		PaymentID:        o.PaymentID,
		PaymentMethod:    o.PaymentMethod,
		DeliveryAddress:  o.DeliveryAddress,
		Status:           string(o.Status),
		DeliveryPartner:  partner,
		EstimatedMinutes: o.EstimatedMinutes,
		CreatedAt:        o.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        o.UpdatedAt.Format(time.RFC3339),
	}
}

type createOrderRequest struct {
	UserID      string `json:"userId"`
	PaymentData struct {
		PaymentID string `json:"paymentId"`
		Method    string `json:"method"`
	} `json:"paymentData"`
	DeliveryAddress string `json:"deliveryAddress"`
}

// CreateOrder оформляет заказ из корзины пользователя.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.UserID == "" || req.PaymentData.PaymentID == "" || req.DeliveryAddress == "" {
		h.writeError(w, http.StatusBadRequest, "user ID, payment data, and delivery address are required")
		return
	}

	order, err := h.service.CreateOrder(r.Context(), req.UserID, req.PaymentData.PaymentID, req.PaymentData.Method, req.DeliveryAddress)
	if err != nil {
		h.handleServiceError(w, err, "create order error")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Order created successfully",
		"order":   toOrderResponse(order),
	})
}

// GetOrder возвращает заказ по идентификатору.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	order, err := h.service.GetOrder(r.Context(), orderID)
	if err != nil {
		h.handleServiceError(w, err, "get order error")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"order":   toOrderResponse(order),
	})
}

// GetUserOrders возвращает заказы пользователя, новые первыми.
func (h *Handler) GetUserOrders(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	orders, err := h.service.GetOrdersByUser(r.Context(), userID)
	if err != nil {
		h.handleServiceError(w, err, "get user orders error")
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for i := range orders {
		resp = append(resp, toOrderResponse(&orders[i]))
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"orders":  resp,
		"total":   len(resp),
	})
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateOrderStatus переводит заказ в указанный статус.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Status == "" {
		h.writeError(w, http.StatusBadRequest, "status is required")
		return
	}

	order, err := h.service.UpdateOrderStatus(r.Context(), orderID, model.OrderStatus(req.Status))
	if err != nil {
		h.handleServiceError(w, err, "update order status error")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Order status updated successfully",
		"order":   toOrderResponse(order),
	})
}

type assignPartnerRequest struct {
	PartnerName string `json:"partnerName"`
}

// AssignPartner назначает курьера на заказ вручную.
func (h *Handler) AssignPartner(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	var req assignPartnerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.PartnerName == "" {
		h.writeError(w, http.StatusBadRequest, "partner name is required")
		return
	}

	order, err := h.service.AssignDeliveryPartner(r.Context(), orderID, req.PartnerName)
	if err != nil {
		h.handleServiceError(w, err, "assign partner error")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Delivery partner assigned successfully",
		"order":   toOrderResponse(order),
	})
}

type trackingStepResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Completed bool   `json:"completed"`
}

// TrackOrder возвращает заказ и расчётную шкалу доставки.
func (h *Handler) TrackOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	order, steps, err := h.service.TrackOrder(r.Context(), orderID)
	if err != nil {
		h.handleServiceError(w, err, "track order error")
		return
	}

	tracking := make([]trackingStepResponse, 0, len(steps))
	for _, s := range steps {
		tracking = append(tracking, trackingStepResponse{
			Status:    string(s.Status),
			Message:   s.Message,
			Timestamp: s.Timestamp.Format(time.RFC3339),
			Completed: s.Completed,
		})
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"order":    toOrderResponse(order),
		"tracking": tracking,
	})
}

type createPaymentRequest struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	UserID   string  `json:"userId"`
}

// CreatePaymentOrder создаёт синтетический платёжный заказ.
func (h *Handler) CreatePaymentOrder(w http.ResponseWriter, r *http.Request) {
	var req createPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.payments.CreateOrder(int64(req.Amount*100), req.Currency, req.UserID)
	if err != nil {
		h.handleServiceError(w, err, "create payment order error")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"order":   order,
		"key":     h.payments.KeyID(),
	})
}

type verifyPaymentRequest struct {
	OrderID   string  `json:"orderId"`
	PaymentID string  `json:"paymentId"`
	Signature string  `json:"signature"`
	Amount    float64 `json:"amount"`
}

// VerifyPayment подтверждает платёж. Подпись игнорируется.
func (h *Handler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req verifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.payments.Verify(req.OrderID, req.PaymentID, int64(req.Amount*100))
	if err != nil {
		h.handleServiceError(w, err, "verify payment error")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Payment verified successfully",
		"payment": p,
	})
}

type simulatePaymentRequest struct {
	OrderID string  `json:"orderId"`
	Amount  float64 `json:"amount"`
}

// SimulatePaymentSuccess фабрикует успешный платёж для демонстрации.
func (h *Handler) SimulatePaymentSuccess(w http.ResponseWriter, r *http.Request) {
	var req simulatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p := h.payments.SimulateSuccess(req.OrderID, int64(req.Amount*100))

	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Payment completed successfully",
		"payment": p,
	})
}

// GetPaymentMethods возвращает доступные способы оплаты.
func (h *Handler) GetPaymentMethods(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"methods": h.payments.Methods(),
	})
}

package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mmeshcher/quickmart-system/internal/model"
)

// MemoryRepository хранит корзины и заказы в памяти процесса. Используется,
// когда адрес БД не задан. Значения копируются на входе и выходе, поэтому
// снимок заказа никогда не ссылается на живую корзину.
type MemoryRepository struct {
	mu     sync.RWMutex
	carts  map[string]*model.Cart
	orders map[string]*model.Order
}

// NewMemoryRepository создаёт пустое хранилище в памяти.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		carts:  make(map[string]*model.Cart),
		orders: make(map[string]*model.Order),
	}
}

// Close освобождает ресурсы хранилища.
func (r *MemoryRepository) Close() error {
	return nil
}

// GetCart возвращает копию корзины пользователя.
func (r *MemoryRepository) GetCart(_ context.Context, userID string) (*model.Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cart, ok := r.carts[userID]
	if !ok {
		return nil, ErrCartNotFound
	}
	return copyCart(cart), nil
}

// SaveCart сохраняет копию корзины по идентификатору пользователя.
func (r *MemoryRepository) SaveCart(_ context.Context, cart *model.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.carts[cart.UserID] = copyCart(cart)
	return nil
}

// SaveOrder сохраняет копию заказа.
func (r *MemoryRepository) SaveOrder(_ context.Context, order *model.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.orders[order.ID] = copyOrder(order)
	return nil
}

// GetOrder возвращает копию заказа по идентификатору.
func (r *MemoryRepository) GetOrder(_ context.Context, orderID string) (*model.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return copyOrder(order), nil
}

// GetOrdersByUser возвращает заказы пользователя, новые первыми.
func (r *MemoryRepository) GetOrdersByUser(_ context.Context, userID string) ([]model.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var res []model.Order
	for _, order := range r.orders {
		if order.UserID == userID {
			res = append(res, *copyOrder(order))
		}
	}

	sort.Slice(res, func(i, j int) bool {
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})

	return res, nil
}

// UpdateOrderStatus перезаписывает статус заказа и возвращает обновлённый заказ.
func (r *MemoryRepository) UpdateOrderStatus(_ context.Context, orderID string, status model.OrderStatus) (*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}

	order.Status = status
	order.UpdatedAt = time.Now()
	return copyOrder(order), nil
}

// AssignDeliveryPartner назначает курьера и переводит заказ в статус assigned.
func (r *MemoryRepository) AssignDeliveryPartner(_ context.Context, orderID, partnerName string) (*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}

	order.DeliveryPartner = partnerName
	order.Status = model.OrderStatusAssigned
	order.UpdatedAt = time.Now()
	return copyOrder(order), nil
}

func copyCart(cart *model.Cart) *model.Cart {
	cp := *cart
	cp.Lines = make([]model.CartLine, len(cart.Lines))
	copy(cp.Lines, cart.Lines)
	return &cp
}

func copyOrder(order *model.Order) *model.Order {
	cp := *order
	cp.Lines = make([]model.CartLine, len(order.Lines))
	copy(cp.Lines, order.Lines)
	return &cp
}

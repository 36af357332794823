// Package repository содержит хранилища корзин и заказов сервиса квикмарт.
package repository

import (
	"context"
	"errors"

	"github.com/mmeshcher/quickmart-system/internal/model"
)

// ErrCartNotFound возвращается, если корзина пользователя не найдена.
var (
	ErrCartNotFound = errors.New("cart not found")
	// ErrOrderNotFound возвращается, если заказ не найден.
	ErrOrderNotFound = errors.New("order not found")
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	GetCart(ctx context.Context, userID string) (*model.Cart, error)
	SaveCart(ctx context.Context, cart *model.Cart) error
	SaveOrder(ctx context.Context, order *model.Order) error
	GetOrder(ctx context.Context, orderID string) (*model.Order, error)
	GetOrdersByUser(ctx context.Context, userID string) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status model.OrderStatus) (*model.Order, error)
	AssignDeliveryPartner(ctx context.Context, orderID, partnerName string) (*model.Order, error)
}

// Package service реализует бизнес-логику сервиса квикмарт.
package service

import (
	"context"
	"errors"
	"sync"

	"github.com/mmeshcher/quickmart-system/internal/catalog"
	"github.com/mmeshcher/quickmart-system/internal/delivery"
	"github.com/mmeshcher/quickmart-system/internal/model"
	"github.com/mmeshcher/quickmart-system/internal/notifier"
	"github.com/mmeshcher/quickmart-system/internal/repository"
)

// ErrProductOutOfStock возвращается при попытке добавить отсутствующий на складе товар.
var (
	ErrProductOutOfStock = errors.New("product is out of stock")
	// ErrLineNotFound возвращается, если в корзине нет позиции с указанным товаром.
	ErrLineNotFound = errors.New("cart line not found")
	// ErrEmptyCart возвращается при попытке оформить заказ из пустой корзины.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrInvalidInput возвращается при отсутствии обязательного поля запроса.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidStatus возвращается при неизвестном статусе заказа.
	ErrInvalidStatus = errors.New("invalid order status")
	// ErrInvalidTransition возвращается при попытке перевести заказ назад по цепочке статусов.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Service содержит бизнес-логику сервиса квикмарт.
type Service struct {
	repo     repository.Repository
	catalog  *catalog.Catalog
	sim      *delivery.Simulator
	notifier *notifier.Client

	mu        sync.Mutex
	userLocks map[string]*sync.Mutex
}

// NewService создаёт сервис с указанным репозиторием, каталогом, симулятором
// доставки и клиентом уведомлений. Симулятор и клиент могут быть nil.
func NewService(repo repository.Repository, cat *catalog.Catalog, sim *delivery.Simulator, ntf *notifier.Client) *Service {
	return &Service{
		repo:      repo,
		catalog:   cat,
		sim:       sim,
		notifier:  ntf,
		userLocks: make(map[string]*sync.Mutex),
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.sim != nil {
		s.sim.Close()
	}
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// userLock возвращает мьютекс, сериализующий изменения корзины одного
// пользователя: два одновременных addItem не должны гоняться на
// чтении-изменении-записи итогов.
func (s *Service) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.userLocks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.userLocks[userID] = l
	}
	return l
}

// GetCart возвращает корзину пользователя, создавая пустую при первом обращении.
func (s *Service) GetCart(ctx context.Context, userID string) (*model.CartSummary, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}

	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()

	cart, err := s.getOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	return cart.Summary(), nil
}

func (s *Service) getOrCreateCart(ctx context.Context, userID string) (*model.Cart, error) {
	cart, err := s.repo.GetCart(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrCartNotFound) {
			cart = model.NewCart(userID)
			if err := s.repo.SaveCart(ctx, cart); err != nil {
				return nil, err
			}
			return cart, nil
		}
		return nil, err
	}
	return cart, nil
}

// AddItem добавляет товар в корзину пользователя. Цена позиции фиксируется
// в момент первого добавления и не меняется при изменении каталога.
func (s *Service) AddItem(ctx context.Context, userID, productID string, quantity int) (*model.CartSummary, error) {
	if userID == "" || productID == "" || quantity < 1 {
		return nil, ErrInvalidInput
	}

	product, err := s.catalog.FindProduct(productID)
	if err != nil {
		return nil, err
	}
	if !product.InStock {
		return nil, ErrProductOutOfStock
	}

	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()

	cart, err := s.getOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	cart.AddLine(product, quantity)

	if err := s.repo.SaveCart(ctx, cart); err != nil {
		return nil, err
	}
	return cart.Summary(), nil
}

// UpdateQuantity устанавливает количество позиции. Количество <= 0
// эквивалентно удалению позиции.
func (s *Service) UpdateQuantity(ctx context.Context, userID, productID string, quantity int) (*model.CartSummary, error) {
	if userID == "" || productID == "" {
		return nil, ErrInvalidInput
	}

	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()

	cart, err := s.repo.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !cart.SetLineQuantity(productID, quantity) {
		return nil, ErrLineNotFound
	}

	if err := s.repo.SaveCart(ctx, cart); err != nil {
		return nil, err
	}
	return cart.Summary(), nil
}

// RemoveItem удаляет позицию из корзины. Отсутствие позиции не ошибка.
func (s *Service) RemoveItem(ctx context.Context, userID, productID string) (*model.CartSummary, error) {
	if userID == "" || productID == "" {
		return nil, ErrInvalidInput
	}

	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()

	cart, err := s.repo.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	cart.RemoveLine(productID)

	if err := s.repo.SaveCart(ctx, cart); err != nil {
		return nil, err
	}
	return cart.Summary(), nil
}

// ClearCart очищает корзину пользователя.
func (s *Service) ClearCart(ctx context.Context, userID string) (*model.CartSummary, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}

	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()

	cart, err := s.repo.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	cart.Clear()

	if err := s.repo.SaveCart(ctx, cart); err != nil {
		return nil, err
	}
	return cart.Summary(), nil
}

// CreateOrder оформляет заказ из корзины пользователя. Снимок корзины
// копируется в заказ, корзина очищается, назначение курьера планируется
// асинхронно.
func (s *Service) CreateOrder(ctx context.Context, userID, paymentID, paymentMethod, deliveryAddress string) (*model.Order, error) {
	if userID == "" || paymentID == "" || deliveryAddress == "" {
		return nil, ErrInvalidInput
	}

	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()

	cart, err := s.repo.GetCart(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrCartNotFound) {
			return nil, ErrEmptyCart
		}
		return nil, err
	}

	if len(cart.Lines) == 0 {
		return nil, ErrEmptyCart
	}

	order := model.NewOrder(userID, cart.Summary(), paymentID, paymentMethod, deliveryAddress)

	if err := s.repo.SaveOrder(ctx, order); err != nil {
		return nil, err
	}

	cart.Clear()
	if err := s.repo.SaveCart(ctx, cart); err != nil {
		return nil, err
	}

	if s.sim != nil {
		s.sim.Schedule(order.ID, s.completeAssignment)
	}

	s.notifyAsync(func(ctx context.Context) error {
		return s.notifier.OrderCreated(ctx, order)
	})

	return order, nil
}

// completeAssignment вызывается симулятором доставки после задержки.
func (s *Service) completeAssignment(orderID, partnerName string) {
	order, err := s.repo.AssignDeliveryPartner(context.Background(), orderID, partnerName)
	if err != nil {
		return
	}

	s.notifyAsync(func(ctx context.Context) error {
		return s.notifier.PartnerAssigned(ctx, order)
	})
}

// GetOrder возвращает заказ по идентификатору.
func (s *Service) GetOrder(ctx context.Context, orderID string) (*model.Order, error) {
	return s.repo.GetOrder(ctx, orderID)
}

// GetOrdersByUser возвращает заказы пользователя, новые первыми.
func (s *Service) GetOrdersByUser(ctx context.Context, userID string) ([]model.Order, error) {
	return s.repo.GetOrdersByUser(ctx, userID)
}

// UpdateOrderStatus переводит заказ в указанный статус. Движение назад по
// цепочке обработки запрещено.
func (s *Service) UpdateOrderStatus(ctx context.Context, orderID string, status model.OrderStatus) (*model.Order, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	current, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if status.Rank() < current.Status.Rank() {
		return nil, ErrInvalidTransition
	}

	return s.repo.UpdateOrderStatus(ctx, orderID, status)
}

// AssignDeliveryPartner назначает курьера вручную и переводит заказ в статус
// assigned независимо от текущего статуса. Запланированное симулятором
// назначение отменяется.
func (s *Service) AssignDeliveryPartner(ctx context.Context, orderID, partnerName string) (*model.Order, error) {
	if partnerName == "" {
		return nil, ErrInvalidInput
	}

	if s.sim != nil {
		s.sim.Cancel(orderID)
	}

	order, err := s.repo.AssignDeliveryPartner(ctx, orderID, partnerName)
	if err != nil {
		return nil, err
	}

	s.notifyAsync(func(ctx context.Context) error {
		return s.notifier.PartnerAssigned(ctx, order)
	})

	return order, nil
}

// TrackOrder возвращает заказ и расчётную шкалу доставки из пяти шагов.
func (s *Service) TrackOrder(ctx context.Context, orderID string) (*model.Order, []model.TrackingStep, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	return order, order.Tracking(), nil
}

// notifyAsync отправляет событие получателю уведомлений, не блокируя запрос.
func (s *Service) notifyAsync(fn func(ctx context.Context) error) {
	if s.notifier == nil {
		return
	}
	go func() {
		_ = fn(context.Background())
	}()
}

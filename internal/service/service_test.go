package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mmeshcher/quickmart-system/internal/catalog"
	"github.com/mmeshcher/quickmart-system/internal/delivery"
	"github.com/mmeshcher/quickmart-system/internal/model"
	"github.com/mmeshcher/quickmart-system/internal/repository"
)

func testCatalog() *catalog.Catalog {
	return catalog.New([]model.Product{
		{ID: "milk", Name: "Milk", Price: 6500, Category: "Dairy", InStock: true},
		{ID: "bread", Name: "Bread", Price: 4000, Category: "Bakery", InStock: true},
		{ID: "rice", Name: "Rice", Price: 18000, Category: "Grains", InStock: true},
		{ID: "caviar", Name: "Caviar", Price: 99900, Category: "Deli", InStock: false},
	})
}

func newTestService() *Service {
	return NewService(repository.NewMemoryRepository(), testCatalog(), nil, nil)
}

func TestGetCartCreatesEmptyCart(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	summary, err := svc.GetCart(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetCart error: %v", err)
	}

	if summary.Cart.UserID != "user-1" {
		t.Fatalf("userID = %q, want user-1", summary.Cart.UserID)
	}
	if summary.Cart.TotalItems != 0 || summary.Cart.TotalAmount != 0 {
		t.Fatalf("new cart not empty: %+v", summary.Cart)
	}

	// Повторное обращение возвращает ту же корзину.
	again, err := svc.GetCart(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetCart error: %v", err)
	}
	if again.Cart.ID != summary.Cart.ID {
		t.Fatalf("cart recreated: %s != %s", again.Cart.ID, summary.Cart.ID)
	}
}

func TestAddItemUnknownProduct(t *testing.T) {
	svc := newTestService()

	_, err := svc.AddItem(context.Background(), "user-1", "no-such-product", 1)
	if !errors.Is(err, catalog.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestAddItemOutOfStock(t *testing.T) {
	svc := newTestService()

	_, err := svc.AddItem(context.Background(), "user-1", "caviar", 1)
	if !errors.Is(err, ErrProductOutOfStock) {
		t.Fatalf("expected ErrProductOutOfStock, got %v", err)
	}
}

func TestAddItemMergesAndRecomputes(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, "user-1", "milk", 2); err != nil {
		t.Fatalf("AddItem error: %v", err)
	}
	summary, err := svc.AddItem(ctx, "user-1", "milk", 3)
	if err != nil {
		t.Fatalf("AddItem error: %v", err)
	}

	if len(summary.Cart.Lines) != 1 {
		t.Fatalf("lines = %d, want 1", len(summary.Cart.Lines))
	}
	if summary.Cart.Lines[0].Quantity != 5 {
		t.Fatalf("quantity = %d, want 5", summary.Cart.Lines[0].Quantity)
	}
	if summary.Cart.TotalAmount != 5*6500 {
		t.Fatalf("totalAmount = %d, want %d", summary.Cart.TotalAmount, 5*6500)
	}
	if summary.Cart.TotalItems != 5 {
		t.Fatalf("totalItems = %d, want 5", summary.Cart.TotalItems)
	}
}

func TestAddItemInvalidQuantity(t *testing.T) {
	svc := newTestService()

	_, err := svc.AddItem(context.Background(), "user-1", "milk", 0)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestDeliveryFeeRule(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	// 180 рупий — ниже порога бесплатной доставки.
	summary, err := svc.AddItem(ctx, "user-1", "rice", 1)
	if err != nil {
		t.Fatalf("AddItem error: %v", err)
	}
	if summary.DeliveryFee != model.DeliveryFeeAmount {
		t.Fatalf("fee = %d, want %d", summary.DeliveryFee, model.DeliveryFeeAmount)
	}
	if summary.FinalAmount != 18000+model.DeliveryFeeAmount {
		t.Fatalf("finalAmount = %d", summary.FinalAmount)
	}

	// Плюс молоко — выше порога, доставка бесплатна.
	summary, err = svc.AddItem(ctx, "user-1", "milk", 1)
	if err != nil {
		t.Fatalf("AddItem error: %v", err)
	}
	if summary.DeliveryFee != 0 {
		t.Fatalf("fee = %d, want 0", summary.DeliveryFee)
	}
	if summary.FinalAmount != summary.Cart.TotalAmount {
		t.Fatalf("finalAmount = %d, want %d", summary.FinalAmount, summary.Cart.TotalAmount)
	}
}

func TestUpdateQuantityNoCart(t *testing.T) {
	svc := newTestService()

	_, err := svc.UpdateQuantity(context.Background(), "user-1", "milk", 2)
	if !errors.Is(err, repository.ErrCartNotFound) {
		t.Fatalf("expected ErrCartNotFound, got %v", err)
	}
}

func TestUpdateQuantityNoLine(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, "user-1", "milk", 1); err != nil {
		t.Fatalf("AddItem error: %v", err)
	}

	_, err := svc.UpdateQuantity(ctx, "user-1", "bread", 2)
	if !errors.Is(err, ErrLineNotFound) {
		t.Fatalf("expected ErrLineNotFound, got %v", err)
	}
}

func TestUpdateQuantityZeroRemovesLine(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, "user-1", "milk", 2); err != nil {
		t.Fatalf("AddItem error: %v", err)
	}
	if _, err := svc.AddItem(ctx, "user-1", "bread", 1); err != nil {
		t.Fatalf("AddItem error: %v", err)
	}

	summary, err := svc.UpdateQuantity(ctx, "user-1", "milk", 0)
	if err != nil {
		t.Fatalf("UpdateQuantity error: %v", err)
	}

	if len(summary.Cart.Lines) != 1 || summary.Cart.Lines[0].ProductID != "bread" {
		t.Fatalf("milk line not removed: %+v", summary.Cart.Lines)
	}
	if summary.Cart.TotalAmount != 4000 || summary.Cart.TotalItems != 1 {
		t.Fatalf("totals = %d/%d, want 4000/1", summary.Cart.TotalAmount, summary.Cart.TotalItems)
	}
}

func TestUpdateQuantityAbsoluteSet(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, "user-1", "milk", 2); err != nil {
		t.Fatalf("AddItem error: %v", err)
	}

	summary, err := svc.UpdateQuantity(ctx, "user-1", "milk", 7)
	if err != nil {
		t.Fatalf("UpdateQuantity error: %v", err)
	}

	if summary.Cart.Lines[0].Quantity != 7 {
		t.Fatalf("quantity = %d, want 7 (absolute set, not increment)", summary.Cart.Lines[0].Quantity)
	}
}

func TestRemoveItemAbsentIsNoop(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, "user-1", "milk", 2); err != nil {
		t.Fatalf("AddItem error: %v", err)
	}

	summary, err := svc.RemoveItem(ctx, "user-1", "bread")
	if err != nil {
		t.Fatalf("RemoveItem error: %v", err)
	}
	if len(summary.Cart.Lines) != 1 || summary.Cart.TotalItems != 2 {
		t.Fatalf("cart changed by removing absent line: %+v", summary.Cart)
	}
}

func TestClearCart(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, "user-1", "milk", 2); err != nil {
		t.Fatalf("AddItem error: %v", err)
	}

	summary, err := svc.ClearCart(ctx, "user-1")
	if err != nil {
		t.Fatalf("ClearCart error: %v", err)
	}
	if len(summary.Cart.Lines) != 0 || summary.Cart.TotalAmount != 0 || summary.Cart.TotalItems != 0 {
		t.Fatalf("cart not cleared: %+v", summary.Cart)
	}
}

func TestCreateOrderEmptyCart(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	// Корзины ещё нет.
	_, err := svc.CreateOrder(ctx, "user-1", "pay-1", "card", "42 MG Road")
	if !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}

	// Корзина есть, но пустая.
	if _, err := svc.GetCart(ctx, "user-1"); err != nil {
		t.Fatalf("GetCart error: %v", err)
	}
	_, err = svc.CreateOrder(ctx, "user-1", "pay-1", "card", "42 MG Road")
	if !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}
}

func TestCreateOrderValidation(t *testing.T) {
	svc := newTestService()

	_, err := svc.CreateOrder(context.Background(), "user-1", "", "card", "42 MG Road")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCreateOrderSnapshotsAndClearsCart(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, "user-1", "rice", 1); err != nil {
		t.Fatalf("AddItem error: %v", err)
	}

	order, err := svc.CreateOrder(ctx, "user-1", "pay-1", "card", "42 MG Road")
	if err != nil {
		t.Fatalf("CreateOrder error: %v", err)
	}

	if order.Status != model.OrderStatusPlaced {
		t.Fatalf("status = %s, want placed", order.Status)
	}
	if order.TotalAmount != 18000 {
		t.Fatalf("totalAmount = %d, want 18000", order.TotalAmount)
	}
	if order.DeliveryFee != model.DeliveryFeeAmount {
		t.Fatalf("deliveryFee = %d, want %d", order.DeliveryFee, model.DeliveryFeeAmount)
	}
	if order.FinalAmount != 18000+model.DeliveryFeeAmount {
		t.Fatalf("finalAmount = %d", order.FinalAmount)
	}
	if order.PaymentID != "pay-1" || order.DeliveryAddress != "42 MG Road" {
		t.Fatalf("payment/address not stored: %+v", order)
	}

	// Корзина очищена как побочный эффект оформления.
	summary, err := svc.GetCart(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetCart error: %v", err)
	}
	if summary.Cart.TotalItems != 0 {
		t.Fatalf("cart not cleared: totalItems = %d", summary.Cart.TotalItems)
	}

	// Новые покупки пользователя не меняют снимок заказа.
	if _, err := svc.AddItem(ctx, "user-1", "milk", 9); err != nil {
		t.Fatalf("AddItem error: %v", err)
	}

	stored, err := svc.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("GetOrder error: %v", err)
	}
	if len(stored.Lines) != 1 || stored.Lines[0].ProductID != "rice" || stored.Lines[0].Quantity != 1 {
		t.Fatalf("order snapshot changed: %+v", stored.Lines)
	}
}

func TestGetOrdersByUserEmpty(t *testing.T) {
	svc := newTestService()

	orders, err := svc.GetOrdersByUser(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("GetOrdersByUser error: %v", err)
	}
	if len(orders) != 0 {
		t.Fatalf("orders = %d, want 0", len(orders))
	}
}

func createTestOrder(t *testing.T, svc *Service, userID string) *model.Order {
	t.Helper()

	ctx := context.Background()
	if _, err := svc.AddItem(ctx, userID, "milk", 1); err != nil {
		t.Fatalf("AddItem error: %v", err)
	}
	order, err := svc.CreateOrder(ctx, userID, "pay-1", "card", "42 MG Road")
	if err != nil {
		t.Fatalf("CreateOrder error: %v", err)
	}
	return order
}

func TestUpdateOrderStatus(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	order := createTestOrder(t, svc, "user-1")

	updated, err := svc.UpdateOrderStatus(ctx, order.ID, model.OrderStatusConfirmed)
	if err != nil {
		t.Fatalf("UpdateOrderStatus error: %v", err)
	}
	if updated.Status != model.OrderStatusConfirmed {
		t.Fatalf("status = %s, want confirmed", updated.Status)
	}
}

func TestUpdateOrderStatusUnknownValue(t *testing.T) {
	svc := newTestService()

	order := createTestOrder(t, svc, "user-1")

	_, err := svc.UpdateOrderStatus(context.Background(), order.ID, "cancelled")
	if !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestUpdateOrderStatusBackwardRejected(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	order := createTestOrder(t, svc, "user-1")

	if _, err := svc.UpdateOrderStatus(ctx, order.ID, model.OrderStatusPicked); err != nil {
		t.Fatalf("UpdateOrderStatus error: %v", err)
	}

	_, err := svc.UpdateOrderStatus(ctx, order.ID, model.OrderStatusConfirmed)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestUpdateOrderStatusNotFound(t *testing.T) {
	svc := newTestService()

	_, err := svc.UpdateOrderStatus(context.Background(), "missing", model.OrderStatusConfirmed)
	if !errors.Is(err, repository.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestAssignDeliveryPartnerForcesAssigned(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	order := createTestOrder(t, svc, "user-1")

	// Назначение курьера переводит заказ в assigned из любого статуса.
	if _, err := svc.UpdateOrderStatus(ctx, order.ID, model.OrderStatusDelivered); err != nil {
		t.Fatalf("UpdateOrderStatus error: %v", err)
	}

	updated, err := svc.AssignDeliveryPartner(ctx, order.ID, "Rajesh Kumar")
	if err != nil {
		t.Fatalf("AssignDeliveryPartner error: %v", err)
	}
	if updated.Status != model.OrderStatusAssigned {
		t.Fatalf("status = %s, want assigned", updated.Status)
	}
	if updated.DeliveryPartner != "Rajesh Kumar" {
		t.Fatalf("partner = %q", updated.DeliveryPartner)
	}

	// Повторное назначение оставляет последнее имя.
	updated, err = svc.AssignDeliveryPartner(ctx, order.ID, "Sneha Patel")
	if err != nil {
		t.Fatalf("AssignDeliveryPartner error: %v", err)
	}
	if updated.DeliveryPartner != "Sneha Patel" {
		t.Fatalf("partner = %q, want Sneha Patel", updated.DeliveryPartner)
	}
}

func TestTrackOrder(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	order := createTestOrder(t, svc, "user-1")

	_, steps, err := svc.TrackOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("TrackOrder error: %v", err)
	}
	if len(steps) != 5 {
		t.Fatalf("steps = %d, want 5", len(steps))
	}
	if !steps[0].Completed {
		t.Fatalf("placed step must be completed")
	}
	for i := 1; i < 5; i++ {
		if steps[i].Completed {
			t.Fatalf("step %d completed for fresh order", i+1)
		}
	}

	if _, err := svc.AssignDeliveryPartner(ctx, order.ID, "Rajesh Kumar"); err != nil {
		t.Fatalf("AssignDeliveryPartner error: %v", err)
	}

	_, steps, err = svc.TrackOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("TrackOrder error: %v", err)
	}
	if !steps[2].Completed {
		t.Fatalf("assigned step must be completed after partner assignment")
	}
	if steps[3].Completed {
		t.Fatalf("picked step must stay incomplete")
	}
}

func TestTrackOrderNotFound(t *testing.T) {
	svc := newTestService()

	_, _, err := svc.TrackOrder(context.Background(), "missing")
	if !errors.Is(err, repository.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func waitForStatus(t *testing.T, svc *Service, orderID string, status model.OrderStatus, timeout time.Duration) *model.Order {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		order, err := svc.GetOrder(context.Background(), orderID)
		if err != nil {
			t.Fatalf("GetOrder error: %v", err)
		}
		if order.Status == status {
			return order
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("order %s did not reach status %s", orderID, status)
	return nil
}

func TestSimulatedAssignment(t *testing.T) {
	sim := delivery.NewSimulator(delivery.DefaultPartners, 10*time.Millisecond)
	svc := NewService(repository.NewMemoryRepository(), testCatalog(), sim, nil)
	defer svc.Close()

	order := createTestOrder(t, svc, "user-1")

	assigned := waitForStatus(t, svc, order.ID, model.OrderStatusAssigned, time.Second)

	found := false
	for _, p := range delivery.DefaultPartners {
		if assigned.DeliveryPartner == p {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("partner %q not from roster", assigned.DeliveryPartner)
	}
}

func TestManualAssignmentCancelsSimulation(t *testing.T) {
	sim := delivery.NewSimulator(delivery.DefaultPartners, 30*time.Millisecond)
	svc := NewService(repository.NewMemoryRepository(), testCatalog(), sim, nil)
	defer svc.Close()

	order := createTestOrder(t, svc, "user-1")

	if _, err := svc.AssignDeliveryPartner(context.Background(), order.ID, "Manual Partner"); err != nil {
		t.Fatalf("AssignDeliveryPartner error: %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	stored, err := svc.GetOrder(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("GetOrder error: %v", err)
	}
	if stored.DeliveryPartner != "Manual Partner" {
		t.Fatalf("simulated assignment overwrote manual one: %q", stored.DeliveryPartner)
	}
}

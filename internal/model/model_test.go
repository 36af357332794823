package model

import (
	"testing"
	"time"
)

func testProduct(id string, price int64) *Product {
	return &Product{
		ID:      id,
		Name:    "product " + id,
		Price:   price,
		InStock: true,
	}
}

func checkTotals(t *testing.T, c *Cart) {
	t.Helper()

	var amount int64
	var items int
	for _, l := range c.Lines {
		if l.LineTotal != l.UnitPrice*int64(l.Quantity) {
			t.Fatalf("line %s: lineTotal = %d, want %d", l.ProductID, l.LineTotal, l.UnitPrice*int64(l.Quantity))
		}
		amount += l.LineTotal
		items += l.Quantity
	}

	if c.TotalAmount != amount {
		t.Fatalf("totalAmount = %d, want %d", c.TotalAmount, amount)
	}
	if c.TotalItems != items {
		t.Fatalf("totalItems = %d, want %d", c.TotalItems, items)
	}
}

func TestCartTotalsInvariant(t *testing.T) {
	cart := NewCart("user-1")
	p1 := testProduct("p1", 6500)
	p2 := testProduct("p2", 4000)

	cart.AddLine(p1, 2)
	checkTotals(t, cart)

	cart.AddLine(p2, 1)
	checkTotals(t, cart)

	cart.SetLineQuantity("p1", 5)
	checkTotals(t, cart)

	cart.RemoveLine("p2")
	checkTotals(t, cart)

	cart.Clear()
	checkTotals(t, cart)

	if cart.TotalAmount != 0 || cart.TotalItems != 0 {
		t.Fatalf("cleared cart totals = %d/%d, want 0/0", cart.TotalAmount, cart.TotalItems)
	}
}

func TestAddLineMergesSameProduct(t *testing.T) {
	cart := NewCart("user-1")
	p := testProduct("p1", 1000)

	cart.AddLine(p, 2)
	cart.AddLine(p, 3)

	if len(cart.Lines) != 1 {
		t.Fatalf("lines = %d, want 1", len(cart.Lines))
	}
	if cart.Lines[0].Quantity != 5 {
		t.Fatalf("quantity = %d, want 5", cart.Lines[0].Quantity)
	}
	if cart.TotalAmount != 5000 {
		t.Fatalf("totalAmount = %d, want 5000", cart.TotalAmount)
	}
}

func TestAddLineKeepsPriceAtAddTime(t *testing.T) {
	cart := NewCart("user-1")
	p := testProduct("p1", 1000)

	cart.AddLine(p, 1)

	// Изменение цены в каталоге не затрагивает уже добавленную позицию.
	p.Price = 9999
	cart.AddLine(p, 1)

	if cart.Lines[0].UnitPrice != 1000 {
		t.Fatalf("unitPrice = %d, want 1000", cart.Lines[0].UnitPrice)
	}
	if cart.TotalAmount != 2000 {
		t.Fatalf("totalAmount = %d, want 2000", cart.TotalAmount)
	}
}

func TestSetLineQuantityZeroEqualsRemove(t *testing.T) {
	p1 := testProduct("p1", 1000)
	p2 := testProduct("p2", 2000)

	a := NewCart("user-1")
	a.AddLine(p1, 2)
	a.AddLine(p2, 1)
	a.SetLineQuantity("p1", 0)

	b := NewCart("user-1")
	b.AddLine(p1, 2)
	b.AddLine(p2, 1)
	b.RemoveLine("p1")

	if len(a.Lines) != len(b.Lines) || len(a.Lines) != 1 {
		t.Fatalf("lines = %d/%d, want 1/1", len(a.Lines), len(b.Lines))
	}
	if a.Lines[0].ProductID != b.Lines[0].ProductID {
		t.Fatalf("remaining line = %s/%s", a.Lines[0].ProductID, b.Lines[0].ProductID)
	}
	if a.TotalAmount != b.TotalAmount || a.TotalItems != b.TotalItems {
		t.Fatalf("totals differ: %d/%d vs %d/%d", a.TotalAmount, a.TotalItems, b.TotalAmount, b.TotalItems)
	}
}

func TestSetLineQuantityUnknownProduct(t *testing.T) {
	cart := NewCart("user-1")
	cart.AddLine(testProduct("p1", 1000), 1)

	if cart.SetLineQuantity("missing", 3) {
		t.Fatalf("SetLineQuantity for unknown product must return false")
	}
}

func TestRemoveLineAbsentIsNoop(t *testing.T) {
	cart := NewCart("user-1")
	cart.AddLine(testProduct("p1", 1000), 2)

	cart.RemoveLine("missing")

	if len(cart.Lines) != 1 || cart.TotalItems != 2 {
		t.Fatalf("cart changed by removing absent line: %+v", cart)
	}
}

func TestDeliveryFeeThreshold(t *testing.T) {
	tests := []struct {
		name        string
		totalAmount int64
		wantFee     int64
		wantFinal   int64
	}{
		{"above threshold", 20000, 0, 20000},
		{"at threshold", 19900, 2900, 22800},
		{"below threshold", 5000, 2900, 7900},
		{"empty cart", 0, 2900, 2900},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if fee := DeliveryFee(tt.totalAmount); fee != tt.wantFee {
				t.Fatalf("DeliveryFee(%d) = %d, want %d", tt.totalAmount, fee, tt.wantFee)
			}

			cart := NewCart("user-1")
			cart.AddLine(testProduct("p1", tt.totalAmount), 1)
			if tt.totalAmount == 0 {
				cart.Clear()
			}

			s := cart.Summary()
			if s.DeliveryFee != tt.wantFee || s.FinalAmount != tt.wantFinal {
				t.Fatalf("summary = fee %d final %d, want fee %d final %d",
					s.DeliveryFee, s.FinalAmount, tt.wantFee, tt.wantFinal)
			}
		})
	}
}

func TestNewOrderSnapshotsCartLines(t *testing.T) {
	cart := NewCart("user-1")
	cart.AddLine(testProduct("p1", 1000), 2)

	order := NewOrder("user-1", cart.Summary(), "pay-1", "card", "addr")

	cart.Clear()
	cart.AddLine(testProduct("p2", 5000), 7)

	if len(order.Lines) != 1 || order.Lines[0].ProductID != "p1" || order.Lines[0].Quantity != 2 {
		t.Fatalf("order lines changed after cart mutation: %+v", order.Lines)
	}
	if order.Status != OrderStatusPlaced {
		t.Fatalf("status = %s, want %s", order.Status, OrderStatusPlaced)
	}
}

func TestGenerateOrderNumberFormat(t *testing.T) {
	n := generateOrderNumber(time.Now())

	if len(n) != 11 {
		t.Fatalf("order number %q length = %d, want 11", n, len(n))
	}
	if n[:2] != "QM" {
		t.Fatalf("order number %q must start with QM", n)
	}
}

func TestStatusRank(t *testing.T) {
	chain := []OrderStatus{OrderStatusPlaced, OrderStatusConfirmed, OrderStatusAssigned, OrderStatusPicked, OrderStatusDelivered}
	for i := 1; i < len(chain); i++ {
		if chain[i].Rank() <= chain[i-1].Rank() {
			t.Fatalf("rank(%s) must be greater than rank(%s)", chain[i], chain[i-1])
		}
	}

	if OrderStatus("cancelled").Valid() {
		t.Fatalf("unknown status must not be valid")
	}
}

func TestTrackingFreshOrder(t *testing.T) {
	cart := NewCart("user-1")
	cart.AddLine(testProduct("p1", 1000), 1)
	order := NewOrder("user-1", cart.Summary(), "pay-1", "card", "addr")

	steps := order.Tracking()
	if len(steps) != 5 {
		t.Fatalf("steps = %d, want 5", len(steps))
	}

	wantCompleted := []bool{true, false, false, false, false}
	for i, s := range steps {
		if s.Completed != wantCompleted[i] {
			t.Fatalf("step %d (%s) completed = %v, want %v", i+1, s.Status, s.Completed, wantCompleted[i])
		}
	}

	wantOffsets := []time.Duration{0, 2 * time.Minute, 5 * time.Minute, 10 * time.Minute, 30 * time.Minute}
	for i, s := range steps {
		if got := s.Timestamp.Sub(order.CreatedAt); got != wantOffsets[i] {
			t.Fatalf("step %d offset = %v, want %v", i+1, got, wantOffsets[i])
		}
	}
}

func TestTrackingAssignedOrder(t *testing.T) {
	cart := NewCart("user-1")
	cart.AddLine(testProduct("p1", 1000), 1)
	order := NewOrder("user-1", cart.Summary(), "pay-1", "card", "addr")

	order.DeliveryPartner = "Rajesh Kumar"
	order.Status = OrderStatusAssigned

	steps := order.Tracking()

	wantCompleted := []bool{true, true, true, false, false}
	for i, s := range steps {
		if s.Completed != wantCompleted[i] {
			t.Fatalf("step %d (%s) completed = %v, want %v", i+1, s.Status, s.Completed, wantCompleted[i])
		}
	}

	if steps[2].Message != "Assigned to delivery partner: Rajesh Kumar" {
		t.Fatalf("assigned step message = %q", steps[2].Message)
	}
}

func TestTrackingDeliveredOrder(t *testing.T) {
	cart := NewCart("user-1")
	cart.AddLine(testProduct("p1", 1000), 1)
	order := NewOrder("user-1", cart.Summary(), "pay-1", "card", "addr")

	order.DeliveryPartner = "Sneha Patel"
	order.Status = OrderStatusDelivered

	for i, s := range order.Tracking() {
		if !s.Completed {
			t.Fatalf("step %d must be completed for delivered order", i+1)
		}
	}
}

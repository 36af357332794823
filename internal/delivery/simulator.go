// Package delivery содержит симуляцию назначения курьера на заказ.
package delivery

import (
	"math/rand"
	"sync"
	"time"
)

// DefaultPartners — демонстрационный список имён курьеров.
var DefaultPartners = []string{
	"Rajesh Kumar", "Amit Singh", "Priya Sharma", "Vikash Yadav",
	"Rohit Gupta", "Sneha Patel", "Arjun Mehta", "Kavya Reddy",
}

// DefaultAssignDelay — задержка перед назначением курьера на новый заказ.
const DefaultAssignDelay = 2 * time.Second

// AssignFunc вызывается симулятором при срабатывании таймера назначения.
type AssignFunc func(orderID, partnerName string)

// Simulator назначает случайного курьера на заказ после фиксированной
// задержки. Каждое запланированное назначение владеет своим таймером:
// отменённое назначение при позднем срабатывании ничего не делает.
type Simulator struct {
	partners []string
	delay    time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool
}

// NewSimulator создаёт симулятор с указанным списком курьеров и задержкой.
func NewSimulator(partners []string, delay time.Duration) *Simulator {
	return &Simulator{
		partners: partners,
		delay:    delay,
		timers:   make(map[string]*time.Timer),
	}
}

// Schedule планирует назначение курьера на заказ. Не блокирует вызывающего.
// Повторное планирование для того же заказа заменяет предыдущее.
func (s *Simulator) Schedule(orderID string, assign AssignFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || len(s.partners) == 0 {
		return
	}

	if t, ok := s.timers[orderID]; ok {
		t.Stop()
	}

	s.timers[orderID] = time.AfterFunc(s.delay, func() {
		s.fire(orderID, assign)
	})
}

func (s *Simulator) fire(orderID string, assign AssignFunc) {
	s.mu.Lock()
	if _, ok := s.timers[orderID]; !ok {
		// Назначение отменили между срабатыванием таймера и захватом мьютекса.
		s.mu.Unlock()
		return
	}
	delete(s.timers, orderID)
	partner := s.partners[rand.Intn(len(s.partners))]
	s.mu.Unlock()

	assign(orderID, partner)
}

// Cancel отменяет запланированное назначение. Возвращает true, если
// назначение ещё не сработало.
func (s *Simulator) Cancel(orderID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.timers[orderID]
	if !ok {
		return false
	}

	delete(s.timers, orderID)
	t.Stop()
	return true
}

// Close отменяет все запланированные назначения и запрещает новые.
func (s *Simulator) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

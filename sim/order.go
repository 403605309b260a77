package sim

import (
	"fmt"
	"math/rand"
)

// OrderStatus is the lifecycle state of a customer order.
type OrderStatus string

const (
	OrderPending    OrderStatus = "Pending"
	OrderProduction OrderStatus = "Production"
	OrderReady      OrderStatus = "Ready"
)

// Order is one customer order. Progress and Fulfilled only ever increase.
type Order struct {
	ID          string
	Customer    string
	Product     string
	Quantity    int
	Progress    int // 0..100
	Fulfilled   int // units shipped so far
	Status      OrderStatus
	Due         string
	CompletedAt float64 // sim time the order became Ready
	Description string  // e.g. "Production: L2" once assigned
}

// Snapshot exports the order for the wire format.
func (o *Order) Snapshot() OrderSnapshot {
	return OrderSnapshot{
		ID:          o.ID,
		Customer:    o.Customer,
		Product:     o.Product,
		Quantity:    o.Quantity,
		Progress:    o.Progress,
		Fulfilled:   o.Fulfilled,
		Status:      string(o.Status),
		Due:         o.Due,
		Description: o.Description,
	}
}

// orderBook owns all orders and the generation counter.
type orderBook struct {
	orders []*Order
	nextID int
}

// generate spawns a new randomized order with the configured per-tick
// probability.
func (b *orderBook) generate(cfg *Config, rng *rand.Rand) *Order {
	if rng.Float64() >= cfg.Orders.SpawnChance {
		return nil
	}
	b.nextID++
	span := cfg.Orders.MaxQuantity - cfg.Orders.MinQuantity + 1
	o := &Order{
		ID:       fmt.Sprintf("ORD-%04d", b.nextID),
		Customer: fmt.Sprintf("Client %d", 100+rng.Intn(900)),
		Product:  cfg.Products[rng.Intn(len(cfg.Products))],
		Quantity: cfg.Orders.MinQuantity + rng.Intn(span),
		Status:   OrderPending,
		Due:      "2024-02-01",
	}
	b.orders = append(b.orders, o)
	return o
}

// prune drops Ready orders older than the retention window.
func (b *orderBook) prune(now, retention float64) {
	kept := b.orders[:0]
	for _, o := range b.orders {
		if o.Status == OrderReady && now-o.CompletedAt > retention {
			continue
		}
		kept = append(kept, o)
	}
	b.orders = kept
}

// pending counts orders not yet Ready.
func (b *orderBook) pending() int {
	n := 0
	for _, o := range b.orders {
		if o.Status != OrderReady {
			n++
		}
	}
	return n
}

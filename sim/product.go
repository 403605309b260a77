package sim

import "fmt"

// Product is one unit of work flowing down a production line.
type Product struct {
	ID        string
	Type      string  // e.g. "Smart Watch X1"
	OrderID   string  // order this unit is produced against
	Stage     string  // current stage, e.g. "Raw Material", "Cutter", "Finished"
	Quality   float64 // 1.0 = perfect, 0.0 = scrap
	CreatedAt float64 // simulation time of creation
	History   []string
}

// NewProduct creates a product at the raw-material stage.
func NewProduct(id, productType, orderID string, now float64) *Product {
	return &Product{
		ID:        id,
		Type:      productType,
		OrderID:   orderID,
		Stage:     "Raw Material",
		Quality:   1.0,
		CreatedAt: now,
	}
}

// MoveTo advances the product to a new stage and records the transition.
func (p *Product) MoveTo(stage string, now float64) {
	p.Stage = stage
	p.History = append(p.History, fmt.Sprintf("%.1f:%s", now, stage))
}

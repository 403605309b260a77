package sim

import "sort"

// InventoryCategory partitions inventory into raw materials and finished
// goods; only raw materials are auto-restocked.
type InventoryCategory string

const (
	CategoryRawMaterial InventoryCategory = "Raw Material"
	CategoryFinished    InventoryCategory = "Finished"
)

// InventoryItem is one stocked item. Quantity may go negative only under the
// forced restock-on-debt rule (restocking never blocks on cash).
type InventoryItem struct {
	ID            string
	Name          string
	Category      InventoryCategory
	Quantity      int
	SafetyStock   int
	ReorderPoint  int
	RestockAmount int
	CostPerUnit   float64
}

// Inventory owns all stocked items.
type Inventory struct {
	Items []*InventoryItem
}

// NewInventory seeds the inventory from the material catalog: each raw
// material starts at double its safety stock, plus an empty finished-goods
// item. Items are ordered by id so runs are reproducible.
func NewInventory(cfg *Config) *Inventory {
	inv := &Inventory{}
	ids := make([]string, 0, len(cfg.Materials))
	for id := range cfg.Materials {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		spec := cfg.Materials[id]
		inv.Items = append(inv.Items, &InventoryItem{
			ID:            id,
			Name:          spec.Name,
			Category:      CategoryRawMaterial,
			Quantity:      spec.SafetyStock * 2,
			SafetyStock:   spec.SafetyStock,
			ReorderPoint:  spec.SafetyStock,
			RestockAmount: spec.RestockAmount,
			CostPerUnit:   spec.Cost,
		})
	}
	inv.Items = append(inv.Items, &InventoryItem{
		ID:          ItemFinishedGood,
		Name:        "Finished Unit",
		Category:    CategoryFinished,
		CostPerUnit: 50.0,
	})
	return inv
}

// Item returns the item with the given id, or nil.
func (inv *Inventory) Item(id string) *InventoryItem {
	for _, it := range inv.Items {
		if it.ID == id {
			return it
		}
	}
	return nil
}

// Finished returns the finished-goods item.
func (inv *Inventory) Finished() *InventoryItem {
	for _, it := range inv.Items {
		if it.Category == CategoryFinished {
			return it
		}
	}
	return nil
}

// HasAll reports whether every material in the bill is in stock.
func (inv *Inventory) HasAll(bill map[string]int) bool {
	for id, qty := range bill {
		it := inv.Item(id)
		if it == nil || it.Quantity < qty {
			return false
		}
	}
	return true
}

// Consume removes the bill from stock. Callers check HasAll first.
func (inv *Inventory) Consume(bill map[string]int) {
	for id, qty := range bill {
		if it := inv.Item(id); it != nil {
			it.Quantity -= qty
		}
	}
}

// Value is the total book value of all stock.
func (inv *Inventory) Value() float64 {
	total := 0.0
	for _, it := range inv.Items {
		total += float64(it.Quantity) * it.CostPerUnit
	}
	return total
}

// Snapshot exports the inventory for the wire format.
func (inv *Inventory) Snapshot() []InventoryItemSnapshot {
	out := make([]InventoryItemSnapshot, len(inv.Items))
	for i, it := range inv.Items {
		status := "OK"
		if it.Category == CategoryRawMaterial && it.Quantity <= it.ReorderPoint {
			status = "LOW"
		}
		out[i] = InventoryItemSnapshot{
			ID:           it.ID,
			Name:         it.Name,
			Category:     string(it.Category),
			Quantity:     it.Quantity,
			SafetyStock:  it.SafetyStock,
			ReorderPoint: it.ReorderPoint,
			CostPerUnit:  it.CostPerUnit,
			TotalValue:   float64(it.Quantity) * it.CostPerUnit,
			Status:       status,
		}
	}
	return out
}

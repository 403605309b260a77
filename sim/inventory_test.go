package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInventory_SeedsCatalogDeterministically(t *testing.T) {
	// GIVEN the default material catalog
	inv := NewInventory(DefaultConfig())

	// THEN items are ordered by id with the finished-goods item last
	require.Len(t, inv.Items, 6)
	assert.Equal(t, "COMPONENT_SCREEN", inv.Items[0].ID)
	assert.Equal(t, ItemFinishedGood, inv.Items[5].ID)

	// AND every raw material starts at double its safety stock
	metal := inv.Item("RAW_METAL")
	require.NotNil(t, metal)
	assert.Equal(t, metal.SafetyStock*2, metal.Quantity)
	assert.Equal(t, CategoryRawMaterial, metal.Category)
	assert.Equal(t, 0, inv.Finished().Quantity)
}

func TestInventory_HasAllAndConsume(t *testing.T) {
	inv := NewInventory(DefaultConfig())
	bill := map[string]int{"RAW_METAL": 2, "COMPONENT_SCREEN": 1}

	// GIVEN sufficient stock
	require.True(t, inv.HasAll(bill))
	metal := inv.Item("RAW_METAL").Quantity

	// WHEN the bill is consumed
	inv.Consume(bill)
	assert.Equal(t, metal-2, inv.Item("RAW_METAL").Quantity)

	// AND an oversized bill is rejected
	assert.False(t, inv.HasAll(map[string]int{"RAW_METAL": 1 << 20}))
	assert.False(t, inv.HasAll(map[string]int{"UNOBTAINIUM": 1}))
}

func TestInventory_ValueIsBookValueOfAllStock(t *testing.T) {
	inv := &Inventory{Items: []*InventoryItem{
		{ID: "A", Quantity: 10, CostPerUnit: 2.5},
		{ID: "B", Quantity: 4, CostPerUnit: 10.0},
	}}
	assert.Equal(t, 65.0, inv.Value())
}

func TestInventorySnapshot_FlagsLowStock(t *testing.T) {
	// GIVEN metal at its reorder point
	inv := NewInventory(DefaultConfig())
	metal := inv.Item("RAW_METAL")
	metal.Quantity = metal.ReorderPoint

	// WHEN snapshotted
	var metalSnap, finSnap InventoryItemSnapshot
	for _, s := range inv.Snapshot() {
		switch s.ID {
		case "RAW_METAL":
			metalSnap = s
		case ItemFinishedGood:
			finSnap = s
		}
	}

	// THEN the raw material is LOW while empty finished goods stay OK
	assert.Equal(t, "LOW", metalSnap.Status)
	assert.Equal(t, "OK", finSnap.Status)
	assert.Equal(t, float64(metal.Quantity)*metal.CostPerUnit, metalSnap.TotalValue)
}

package sim

// Snapshot is the serialized state of the factory at one tick. It is the
// only view observers ever see; no partial-tick state escapes the loop.
type Snapshot struct {
	Timestamp  float64                 `json:"timestamp"`
	Lines      []LineSnapshot          `json:"lines"`
	Inventory  []InventoryItemSnapshot `json:"inventory"`
	Workers    []WorkerSnapshot        `json:"workers"`
	Orders     []OrderSnapshot         `json:"orders"`
	Financials Financials              `json:"financials"`
	KPI        KPI                     `json:"kpi"`
	// PendingOrders counts orders still Pending or in Production.
	PendingOrders int `json:"pending_orders_count"`
}

// LineSnapshot is the wire view of one production line.
type LineSnapshot struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	ProductType  string            `json:"product_type"`
	CurrentOrder *OrderSnapshot    `json:"current_order,omitempty"`
	Machines     []MachineSnapshot `json:"machines"`
}

// MachineSnapshot is the wire view of one machine. Metrics carries the
// variant's typed metrics flattened into a generic map; this is the only
// place the string-keyed view exists.
type MachineSnapshot struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Type        string             `json:"type"`
	Status      string             `json:"status"`
	LastFault   string             `json:"last_fault"`
	HealthScore float64            `json:"health_score"`
	Metrics     map[string]float64 `json:"metrics"`
	InputCount  int                `json:"input_count"`
	OutputCount int                `json:"output_count"`
	Processing  int                `json:"processing"`
	WearLevel   float64            `json:"wear_level"`
	Parts       []PartSnapshot     `json:"parts"`
}

// Metric looks up a metric by its wire name, returning 0 when absent.
func (m MachineSnapshot) Metric(name string) float64 {
	return m.Metrics[name]
}

// PartSnapshot is the wire view of one wearing part.
type PartSnapshot struct {
	Name   string  `json:"name"`
	Wear   float64 `json:"wear"`
	Status string  `json:"status"`
}

// WorkerSnapshot is the wire view of one worker.
type WorkerSnapshot struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location"`
	State    string `json:"state"`
	Target   string `json:"target,omitempty"`
}

// OrderSnapshot is the wire view of one order.
type OrderSnapshot struct {
	ID          string `json:"id"`
	Customer    string `json:"customer"`
	Product     string `json:"product"`
	Quantity    int    `json:"quantity"`
	Progress    int    `json:"progress"`
	Fulfilled   int    `json:"fulfilled"`
	Status      string `json:"status"`
	Due         string `json:"due"`
	Description string `json:"description,omitempty"`
}

// InventoryItemSnapshot is the wire view of one inventory item.
type InventoryItemSnapshot struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	Quantity     int     `json:"quantity"`
	SafetyStock  int     `json:"safety_stock"`
	ReorderPoint int     `json:"reorder_point"`
	CostPerUnit  float64 `json:"cost_per_unit"`
	TotalValue   float64 `json:"total_value"`
	Status       string  `json:"status"`
}

// Financials is the economic ledger view.
type Financials struct {
	Revenue float64 `json:"revenue"`
	Costs   float64 `json:"costs"`
	Profit  float64 `json:"profit"`
	Cash    float64 `json:"cash"`
	Assets  float64 `json:"assets"`
}

// KPI aggregates facility-level indicators derived on export.
type KPI struct {
	TotalOutput   int     `json:"total_output"`
	DefectCount   int     `json:"defect_count"`
	DefectRate    float64 `json:"defect_rate"`
	AvgEfficiency float64 `json:"avg_efficiency"`
	EnergyKWh     float64 `json:"energy_usage"`
}

package sim

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ThresholdSpec is the base critical/safe band for one machine metric,
// before per-machine randomization is applied.
type ThresholdSpec struct {
	Critical float64 `yaml:"critical"`
	SafeMax  float64 `yaml:"safe_max"`
}

// MaterialSpec describes one raw material in the catalog.
type MaterialSpec struct {
	Name          string  `yaml:"name"`
	Cost          float64 `yaml:"cost"`
	SafetyStock   int     `yaml:"safety_stock"`
	RestockAmount int     `yaml:"restock_amount"`
}

// WorkerConfig groups worker movement and repair parameters.
type WorkerConfig struct {
	Count          int     `yaml:"count"`            // fixed pool size
	SpeedBase      float64 `yaml:"speed_base"`       // seconds per hop before noise
	TravelNoiseStd float64 `yaml:"travel_noise_std"` // stddev of Gaussian travel noise per hop
	RepairTime     float64 `yaml:"repair_time"`      // seconds for a full repair job
}

// PhysicsConfig groups the failure model tunables shared by all machines.
type PhysicsConfig struct {
	ThresholdVariance float64 `yaml:"threshold_variance"`  // +/- randomization applied to base thresholds
	FailureChanceBase float64 `yaml:"failure_chance_base"` // base failure probability per tick
	FailureExponent   float64 `yaml:"failure_exponent"`    // sharpness of the risk curve near a threshold
	HighWearThreshold float64 `yaml:"high_wear_threshold"` // part wear above this triggers preventive service
}

// EconomyConfig groups prices, wages and the opening balance.
type EconomyConfig struct {
	ProductPrice     float64 `yaml:"product_price"`
	HourlyWage       float64 `yaml:"hourly_wage"`
	RepairCost       float64 `yaml:"repair_cost"`
	EnergyCostPerKWh float64 `yaml:"energy_cost_per_kwh"`
	InitialCapital   float64 `yaml:"initial_capital"`
}

// OrderConfig groups order generation and retention parameters.
type OrderConfig struct {
	SpawnChance float64 `yaml:"spawn_chance"` // per-tick probability of a new order
	MinQuantity int     `yaml:"min_quantity"`
	MaxQuantity int     `yaml:"max_quantity"`
	Retention   float64 `yaml:"retention"` // seconds a Ready order survives prune_orders
}

// Config holds every tunable of the simulated facility. DefaultConfig mirrors
// the calibration the system ships with; a YAML file may override any field.
type Config struct {
	Worker  WorkerConfig  `yaml:"worker"`
	Physics PhysicsConfig `yaml:"physics"`
	Economy EconomyConfig `yaml:"economy"`
	Orders  OrderConfig   `yaml:"orders"`

	// Thresholds maps machine type -> metric name -> base band.
	Thresholds map[MachineType]map[string]ThresholdSpec `yaml:"thresholds"`

	// Materials is the raw-material catalog, keyed by inventory id.
	Materials map[string]MaterialSpec `yaml:"materials"`

	// Recipes maps product type -> material id -> units consumed per product.
	Recipes map[string]map[string]int `yaml:"recipes"`

	// Products are the sellable product types orders may ask for.
	Products []string `yaml:"products"`
}

// Inventory ids with fixed roles.
const (
	ItemPackaging    = "PACKAGING"
	ItemFinishedGood = "FIN-001"
)

// DefaultConfig returns the built-in calibration. The thresholds, wear rates
// and prices are illustrative, not measured from real equipment.
func DefaultConfig() *Config {
	return &Config{
		Worker: WorkerConfig{
			Count:          3,
			SpeedBase:      5.0,
			TravelNoiseStd: 1.0,
			RepairTime:     15.0,
		},
		Physics: PhysicsConfig{
			ThresholdVariance: 0.1,
			FailureChanceBase: 0.00001,
			FailureExponent:   4.0,
			HighWearThreshold: 0.8,
		},
		Economy: EconomyConfig{
			ProductPrice:     150.0,
			HourlyWage:       25.0,
			RepairCost:       500.0,
			EnergyCostPerKWh: 0.15,
			InitialCapital:   50000.0,
		},
		Orders: OrderConfig{
			SpawnChance: 0.0025,
			MinQuantity: 100,
			MaxQuantity: 1000,
			Retention:   86400.0,
		},
		Thresholds: map[MachineType]map[string]ThresholdSpec{
			MachineCutter: {
				"temperature": {Critical: 100.0, SafeMax: 90.0},
				"vibration":   {Critical: 10.0, SafeMax: 8.0},
			},
			MachineRobotArm: {
				"current": {Critical: 20.0, SafeMax: 18.0},
			},
			MachineConveyor: {
				"speed": {Critical: 2.0, SafeMax: 1.5},
			},
			MachineInspector: {},
			MachinePacker: {
				"jam_rate": {Critical: 0.5, SafeMax: 0.3},
			},
		},
		Materials: map[string]MaterialSpec{
			"RAW_METAL":        {Name: "Metal Sheet", Cost: 15.0, SafetyStock: 200, RestockAmount: 500},
			"RAW_PLASTIC":      {Name: "Plastic Pellets", Cost: 5.0, SafetyStock: 500, RestockAmount: 1000},
			ItemPackaging:      {Name: "Cardboard Box", Cost: 1.0, SafetyStock: 300, RestockAmount: 1000},
			"COMPONENT_SENSOR": {Name: "Sensor Unit", Cost: 45.0, SafetyStock: 100, RestockAmount: 200},
			"COMPONENT_SCREEN": {Name: "OLED Screen", Cost: 30.0, SafetyStock: 100, RestockAmount: 200},
		},
		Recipes: map[string]map[string]int{
			"Generic Unit":    {"RAW_METAL": 1, "RAW_PLASTIC": 1},
			"Smart Watch Pro": {"RAW_METAL": 2, "COMPONENT_SCREEN": 1},
			"Smart Watch X1":  {"RAW_PLASTIC": 2, "COMPONENT_SCREEN": 1},
			"Sensor Module":   {"RAW_PLASTIC": 1, "COMPONENT_SENSOR": 1},
		},
		Products: []string{"Smart Watch Pro", "Smart Watch X1", "Sensor Module"},
	}
}

// LoadConfig reads a YAML override file on top of the defaults. An empty path
// returns the defaults unchanged.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Recipe returns the bill of materials for a product type, falling back to
// the generic recipe for unknown products.
func (c *Config) Recipe(productType string) map[string]int {
	if r, ok := c.Recipes[productType]; ok {
		return r
	}
	return c.Recipes["Generic Unit"]
}

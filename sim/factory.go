package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Factory owns all production lines, workers, inventory, orders and the
// economic ledger, and drives the per-tick update. All mutation happens
// inside Update or Control; the Runner guarantees those are never invoked
// concurrently.
type Factory struct {
	cfg *Config
	rng *PartitionedRNG

	clock float64 // simulation time, seconds

	Lines     []*ProductionLine
	Workers   []*Worker
	Inventory *Inventory

	book       orderBook
	productSeq int

	// Ledger. Costs and revenue accrue monotonically; cash may go negative
	// under forced restocking.
	TotalRevenue   float64
	TotalCosts     float64
	TotalEnergyKWh float64
	CashBalance    float64

	finishedCount int // products shipped from packers since start
}

// NewFactory builds a facility with three lines and the configured worker
// pool, seeded for reproducible runs.
func NewFactory(cfg *Config, seed int64) *Factory {
	f := &Factory{
		cfg: cfg,
		rng: NewPartitionedRNG(seed),
	}
	f.initState()
	return f
}

// initState builds the mutable world from scratch. Called at construction
// and again on a SYSTEM reset.
func (f *Factory) initState() {
	thrRNG := f.rng.ForSubsystem(SubsystemThresholds)
	f.Lines = []*ProductionLine{
		NewProductionLine("L1", "Line A", "Smart Watch Pro", f.cfg, thrRNG),
		NewProductionLine("L2", "Line B", "Smart Watch X1", f.cfg, thrRNG),
		NewProductionLine("L3", "Line C", "Sensor Module", f.cfg, thrRNG),
	}
	f.Workers = make([]*Worker, f.cfg.Worker.Count)
	for i := range f.Workers {
		f.Workers[i] = NewWorker(fmt.Sprintf("W-%d", i+1), fmt.Sprintf("Worker %d", i+1))
	}
	f.Inventory = NewInventory(f.cfg)
	f.book = orderBook{}
	f.TotalRevenue = 0
	f.TotalCosts = 0
	f.TotalEnergyKWh = 0
	f.CashBalance = f.cfg.Economy.InitialCapital
	f.finishedCount = 0
}

// Clock returns the current simulation time in seconds.
func (f *Factory) Clock() float64 { return f.clock }

// Orders returns the live order book.
func (f *Factory) Orders() []*Order { return f.book.orders }

// AddOrder injects an order directly, used by tests and external callers.
func (f *Factory) AddOrder(o *Order) { f.book.orders = append(f.book.orders, o) }

// Machine returns the machine with the given id across all lines, or nil.
func (f *Factory) Machine(id string) Machine {
	for _, l := range f.Lines {
		if m := l.Machine(id); m != nil {
			return m
		}
	}
	return nil
}

// AllMachines returns every machine in topological order: line by line,
// upstream to downstream. Worker patrol follows this order.
func (f *Factory) AllMachines() []Machine {
	var out []Machine
	for _, l := range f.Lines {
		out = append(out, l.Machines...)
	}
	return out
}

// Update advances the whole facility by dt seconds: order dispatch, restock,
// material feed, machine physics and flow, shipment, workers, order
// generation, and the ledger, in that order.
func (f *Factory) Update(dt float64) {
	f.clock += dt
	now := f.clock

	f.dispatchOrders()
	f.restock()
	f.feedMaterials(now)

	physRNG := f.rng.ForSubsystem(SubsystemPhysics)
	for _, line := range f.Lines {
		line.Update(dt, now, physRNG)
		f.ship(line, now)
	}

	f.updateWorkers(dt, now)
	f.book.generate(f.cfg, f.rng.ForSubsystem(SubsystemOrders))
	f.accrueLedger(dt)
}

// dispatchOrders frees lines whose order is done and assigns any open order
// to any free line (load balanced; a line retools to the order's product).
func (f *Factory) dispatchOrders() {
	for _, line := range f.Lines {
		if line.CurrentOrder != nil {
			if line.CurrentOrder.Status == OrderReady || line.CurrentOrder.Progress >= 100 {
				line.CurrentOrder = nil
			}
			continue
		}

		assigned := map[string]bool{}
		for _, other := range f.Lines {
			if other.CurrentOrder != nil {
				assigned[other.CurrentOrder.ID] = true
			}
		}
		for _, o := range f.book.orders {
			if o.Status == OrderReady || assigned[o.ID] {
				continue
			}
			line.CurrentOrder = o
			line.ProductType = o.Product
			if o.Status == OrderPending {
				o.Status = OrderProduction
			}
			o.Description = fmt.Sprintf("Production: %s", line.ID)
			logrus.Debugf("order %s assigned to %s (%s x%d)", o.ID, line.ID, o.Product, o.Quantity)
			break
		}
	}
}

// restock replenishes any raw material at or below its reorder point. The
// purchase always goes through, even into debt; restocking never blocks on
// cash.
func (f *Factory) restock() {
	for _, it := range f.Inventory.Items {
		if it.Category != CategoryRawMaterial || it.Quantity > it.ReorderPoint {
			continue
		}
		cost := float64(it.RestockAmount) * it.CostPerUnit
		f.CashBalance -= cost
		f.TotalCosts += cost
		it.Quantity += it.RestockAmount
		logrus.Debugf("restocked %d x %s for %.2f (cash %.2f)", it.RestockAmount, it.Name, cost, f.CashBalance)
	}
}

// feedMaterials spawns new products into the first machine of each line with
// an assigned order, when the recipe's materials are in stock and the intake
// buffer has room. This gate is the only place buffer capacity is enforced.
func (f *Factory) feedMaterials(now float64) {
	for _, line := range f.Lines {
		if line.CurrentOrder == nil {
			continue
		}
		first := line.First()
		if first.InputLen() >= first.Capacity() {
			continue
		}
		recipe := f.cfg.Recipe(line.ProductType)
		if !f.Inventory.HasAll(recipe) {
			continue
		}
		f.Inventory.Consume(recipe)
		f.productSeq++
		p := NewProduct(fmt.Sprintf("P-%05d", f.productSeq), line.ProductType, line.CurrentOrder.ID, now)
		first.PushInput(p)
	}
}

// ship collects finished items from the line's packer: finished goods stock
// goes up, one packaging unit is consumed, and the line's order progresses.
func (f *Factory) ship(line *ProductionLine, now float64) {
	for _, prod := range line.Last().DrainOutput() {
		prod.MoveTo("Finished", now)
		f.finishedCount++

		if fin := f.Inventory.Finished(); fin != nil {
			fin.Quantity++
		}
		if pkg := f.Inventory.Item(ItemPackaging); pkg != nil && pkg.Quantity > 0 {
			pkg.Quantity--
		}
		if line.CurrentOrder != nil {
			f.fulfill(line.CurrentOrder, now)
		}
	}
}

// fulfill advances an order by one shipped unit. Hitting 100% marks it Ready
// exactly once, settles the full order value into cash, and ships the
// quantity out of finished-goods stock.
func (f *Factory) fulfill(o *Order, now float64) {
	if o.Status == OrderReady {
		return
	}
	o.Fulfilled++
	o.Progress = min(100, o.Fulfilled*100/o.Quantity)
	f.TotalRevenue += f.cfg.Economy.ProductPrice

	if o.Progress >= 100 {
		o.Status = OrderReady
		o.CompletedAt = now
		value := float64(o.Quantity) * f.cfg.Economy.ProductPrice
		f.CashBalance += value
		if fin := f.Inventory.Finished(); fin != nil {
			fin.Quantity -= o.Quantity
			if fin.Quantity < 0 {
				fin.Quantity = 0
			}
		}
		logrus.Infof("order %s ready: %d x %s, settled %.2f", o.ID, o.Quantity, o.Product, value)
	}
}

// accrueLedger debits wages for the whole pool and energy for every running
// machine, using a per-type power draw model integrated over dt.
func (f *Factory) accrueLedger(dt float64) {
	wages := f.cfg.Economy.HourlyWage / 3600.0 * dt * float64(len(f.Workers))
	f.TotalCosts += wages
	f.CashBalance -= wages

	energyKWh := 0.0
	for _, m := range f.AllMachines() {
		if m.Status() != StatusRunning {
			continue
		}
		var powerKW float64
		switch mm := m.(type) {
		case *Cutter:
			powerKW = 3.0 + mm.Metrics().Speed/1000.0
		case *Conveyor:
			powerKW = 0.5 + mm.Metrics().Speed
		default:
			powerKW = 2.0
		}
		energyKWh += powerKW * dt / 3600.0
	}
	f.TotalEnergyKWh += energyKWh
	energyCost := energyKWh * f.cfg.Economy.EnergyCostPerKWh
	f.TotalCosts += energyCost
	f.CashBalance -= energyCost
}

// Reset performs the SYSTEM-level hard reset: cash, orders, inventory,
// lines and workers are reinitialized.
func (f *Factory) Reset() {
	logrus.Warn("factory hard reset")
	f.initState()
}

// PruneOrders drops Ready orders older than the retention window.
func (f *Factory) PruneOrders() {
	f.book.prune(f.clock, f.cfg.Orders.Retention)
}

// Snapshot exports the full facility state for this tick.
func (f *Factory) Snapshot() Snapshot {
	lines := make([]LineSnapshot, len(f.Lines))
	for i, l := range f.Lines {
		lines[i] = l.Snapshot()
	}
	workers := make([]WorkerSnapshot, len(f.Workers))
	for i, w := range f.Workers {
		workers[i] = w.Snapshot()
	}
	orders := make([]OrderSnapshot, len(f.book.orders))
	for i, o := range f.book.orders {
		orders[i] = o.Snapshot()
	}

	kpi := f.kpi()
	return Snapshot{
		Timestamp: f.clock,
		Lines:     lines,
		Inventory: f.Inventory.Snapshot(),
		Workers:   workers,
		Orders:    orders,
		Financials: Financials{
			Revenue: f.TotalRevenue,
			Costs:   f.TotalCosts,
			Profit:  f.TotalRevenue - f.TotalCosts,
			Cash:    f.CashBalance,
			Assets:  f.CashBalance + f.Inventory.Value(),
		},
		KPI:           kpi,
		PendingOrders: f.book.pending(),
	}
}

// kpi aggregates facility-level indicators. Efficiency uses speed ratio as a
// proxy for cutters and conveyors and the efficiency setting elsewhere.
func (f *Factory) kpi() KPI {
	totalOutput := 0
	defects := 0
	totalEff := 0.0
	count := 0
	for _, m := range f.AllMachines() {
		count++
		switch mm := m.(type) {
		case *Packer:
			totalOutput += int(mm.Metrics().PackedCount)
			totalEff += mm.Metrics().Efficiency
		case *Inspector:
			defects += int(mm.Metrics().FailCount)
			totalEff += mm.Metrics().Speed
		case *Cutter:
			totalEff += mm.Metrics().Speed / 3000.0 * 100.0
		case *Conveyor:
			totalEff += mm.Metrics().Speed / 1.2 * 100.0
		case *RobotArm:
			totalEff += mm.Metrics().Efficiency
		}
	}
	defectRate := 0.0
	if totalOutput+defects > 0 {
		defectRate = float64(defects) / float64(totalOutput+defects) * 100.0
	}
	avgEff := 0.0
	if count > 0 {
		avgEff = totalEff / float64(count)
	}
	return KPI{
		TotalOutput:   totalOutput,
		DefectCount:   defects,
		DefectRate:    defectRate,
		AvgEfficiency: avgEff,
		EnergyKWh:     f.TotalEnergyKWh,
	}
}

package cmd

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/factory-sim/factory-sim/monitor"
	"github.com/factory-sim/factory-sim/monitor/sink"
	"github.com/factory-sim/factory-sim/sim"
)

var (
	// Simulation flags.
	seed         int64         // master seed for all RNG subsystems
	tickInterval time.Duration // wall time per simulation tick
	maxTicks     int           // stop after this many ticks (0 = run forever)
	configPath   string        // optional YAML config override
	logLevel     string        // log verbosity level

	// Monitoring flags.
	oracleURL   string // AI oracle endpoint ("" disables enrichment/autonomy)
	oracleModel string // model name passed to the oracle
	eventsDB    string // SQLite event sink path ("" disables persistence)
)

// rootCmd is the base command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "factory-sim",
	Short: "Discrete time-stepped factory simulator with autonomous monitoring",
}

// runCmd runs the simulation and monitoring loops until interrupted.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the factory simulation and the alert/remediation engine",
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		cfg, err := sim.LoadConfig(configPath)
		if err != nil {
			return err
		}

		factory := sim.NewFactory(cfg, seed)
		runner := sim.NewRunner(factory, tickInterval, maxTicks)

		var eventSink monitor.EventSink
		if eventsDB != "" {
			store, err := sink.Open(eventsDB)
			if err != nil {
				return err
			}
			defer store.Close()
			eventSink = store
		}

		var oracle monitor.Oracle
		if oracleURL != "" {
			oracle = monitor.NewHTTPOracle(oracleURL, oracleModel)
			logrus.Infof("oracle enabled: %s (%s)", oracleURL, oracleModel)
		} else {
			logrus.Info("oracle disabled, alerts will not be enriched")
		}

		sender := func(machineID, command string) error {
			runner.Send(sim.Command{MachineID: machineID, Command: command})
			return nil
		}
		manager := monitor.NewManager(oracle, sender, eventSink)

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		logrus.Infof("starting factory (seed=%d, tick=%s)", seed, tickInterval)
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			runner.Run(ctx)
			cancel() // tick limit reached: wind down monitoring too
		}()
		go func() {
			defer wg.Done()
			manager.Run(ctx, runner.Snapshots())
		}()
		wg.Wait()
		logrus.Info("shutdown complete")
		return nil
	},
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Fatal(err)
	}
}

func init() {
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Master RNG seed for reproducible runs")
	runCmd.Flags().DurationVar(&tickInterval, "tick", time.Second, "Wall time per simulation tick")
	runCmd.Flags().IntVar(&maxTicks, "ticks", 0, "Stop after N ticks (0 = run until interrupted)")
	runCmd.Flags().StringVar(&configPath, "config", "", "YAML config overriding the built-in calibration")
	runCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (trace|debug|info|warn|error)")
	runCmd.Flags().StringVar(&oracleURL, "oracle-url", "", "AI oracle generate endpoint (empty disables)")
	runCmd.Flags().StringVar(&oracleModel, "oracle-model", "llama3.2", "Model name passed to the oracle")
	runCmd.Flags().StringVar(&eventsDB, "events-db", "", "SQLite path for the alert event sink (empty disables)")

	rootCmd.AddCommand(runCmd)
}

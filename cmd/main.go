package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"runtime"
	"time"

	version "github.com/dexwallet/tx-manager"
	"github.com/dexwallet/tx-manager/chains"
	"github.com/dexwallet/tx-manager/config"
	"github.com/dexwallet/tx-manager/db"
	"github.com/dexwallet/tx-manager/log"
	"github.com/dexwallet/tx-manager/metrics"
	"github.com/dexwallet/tx-manager/monitor"
	"github.com/dexwallet/tx-manager/orders"
	"github.com/dexwallet/tx-manager/sender"
	server "github.com/dexwallet/tx-manager/server"
	"github.com/dexwallet/tx-manager/signer"
	"github.com/dexwallet/tx-manager/store"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
)

const appName = "tx-manager"

var (
	configFileFlag = cli.StringFlag{
		Name:     config.FlagCfg,
		Aliases:  []string{"c"},
		Usage:    "Configuration `FILE`",
		Required: true,
	}
	migrationsFlag = cli.BoolFlag{
		Name:     config.FlagNoMigrations,
		Aliases:  []string{"n"},
		Usage:    "Disable run migrations in wallet database",
		Required: false,
	}
)

func main() {
	// a local .env can override the environment during development
	_ = godotenv.Load()

	app := cli.NewApp()
	app.Name = appName
	app.Usage = "Wallet transaction lifecycle manager"
	app.Version = version.Version
	flags := []cli.Flag{&configFileFlag}
	app.Commands = []*cli.Command{
		{
			Name:    "version",
			Aliases: []string{},
			Usage:   "Application version and build",
			Action:  versionCmd,
		},
		{
			Name:    "run",
			Aliases: []string{},
			Usage:   "Run the wallet transaction manager",
			Action:  start,
			Flags:   append(flags, &migrationsFlag),
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		println()
		color.Red("ERROR: %v", err)
		os.Exit(1)
	}
}

func start(cliCtx *cli.Context) error {
	// Load config file
	c, err := config.Load(cliCtx)
	if err != nil {
		return err
	}

	// Setup logger
	log.Init(c.Log)
	if c.Log.Environment == log.EnvironmentDevelopment {
		version.PrintVersion(os.Stdout)
		log.Info("starting application...")
	} else if c.Log.Environment == log.EnvironmentProduction {
		logVersion()
	}

	// Run migrations if the 'no-migrations' flag is not set
	if !cliCtx.Bool(config.FlagNoMigrations) {
		log.Infof("running database migrations, host: %s:%s, db: %s, user: %s", c.DB.Host, c.DB.Port, c.DB.Name, c.DB.User)
		runWalletMigrations(c.DB)
	}
	checkWalletMigrations(c.DB)

	var cancelFuncs []context.CancelFunc

	txDB, err := db.NewTxDB(c.DB)
	if err != nil {
		log.Fatalf("error when creating wallet DB instance, error: %v", err)
	}

	st := store.New(txDB)
	rehydrateStore(st, txDB)

	registry, err := chains.NewRegistry(c.Chains)
	if err != nil {
		log.Fatalf("error when creating chain registry, error: %v", err)
	}

	signers := signer.NewKeystoreManager(c.Signer)
	txSender := sender.NewSender(c.Sender, st)
	exec := newExecutor(txSender, registry, signers, st)

	permit2, err := orders.NewPermit2Builder()
	if err != nil {
		log.Fatalf("error when creating cancellation builder, error: %v", err)
	}
	// no order-status or analytics client is wired yet; only orders carrying their encoded
	// payload locally are considered for cancellation, and cancellations go unreported
	canceler := orders.NewCanceler(st, permit2, exec, nil, nil)

	metrics.Register()

	// no fiat ramp provider client is wired yet; fiat purchase records are stored, served
	// and reconciled but never polled for provider-side updates
	mon := monitor.NewMonitor(c.Monitor, st, registry, exec, exec, nil)
	mon.Start()

	// no remote indexer client is wired yet; wallet_getTransactions serves the local view
	// until a deployment provides a fetcher
	srv := server.NewServer(c.Server, st, exec, canceler, nil, registry)
	go srv.Start()

	if c.Metrics.Enabled {
		go startMetricsHttpServer(c.Metrics)
	}

	if c.Metrics.ProfilingEnabled {
		go startProfilingHttpServer(c.Metrics)
	}

	go func() {
		for {
			select {
			case <-cliCtx.Done():
				log.Infof("Exiting loop...")
				return
			default:
				time.Sleep(30 * time.Second)
				mon.Summary()
			}
		}
	}()

	waitSignal(cancelFuncs)

	return nil
}

// rehydrateStore loads every incomplete record from the database so watchers can resume
// where the previous run stopped
func rehydrateStore(st *store.Store, txDB *db.TxDB) {
	txs, err := txDB.GetIncompleteTransactions(context.Background())
	if err != nil {
		log.Fatalf("error loading incomplete transactions from the database, error: %v", err)
	}
	st.Load(txs)
	log.Infof("rehydrated %d incomplete transactions from the database", len(txs))
}

func versionCmd(*cli.Context) error {
	version.PrintVersion(os.Stdout)
	return nil
}

func runWalletMigrations(c db.Config) {
	log.Infof("running database migrations for %v", db.WalletMigrationName)
	err := db.RunMigrationsUp(c)
	if err != nil {
		log.Fatal(err)
	}
}

func checkWalletMigrations(c db.Config) {
	err := db.CheckMigrations(c)
	if err != nil {
		log.Fatal(err)
	}
}

func waitSignal(cancelFuncs []context.CancelFunc) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt)

	for sig := range signals {
		switch sig {
		case os.Interrupt, os.Kill:
			log.Info("terminating application gracefully...")

			exitStatus := 0
			for _, cancel := range cancelFuncs {
				cancel()
			}
			os.Exit(exitStatus)
		}
	}
}

func logVersion() {
	log.Infow(
		"Git revision", version.GitRev,
		"Git branch", version.GitBranch,
		"Go version", runtime.Version(),
		"Built", version.BuildDate,
		"OS/Arch", fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	)
}

func startProfilingHttpServer(c metrics.Config) {
	const two = 2
	mux := http.NewServeMux()
	address := fmt.Sprintf("%s:%d", c.ProfilingHost, c.ProfilingPort)
	lis, err := net.Listen("tcp", address)
	if err != nil {
		log.Errorf("failed to create tcp listener for profiling: %v", err)
		return
	}
	mux.HandleFunc(metrics.ProfilingIndexEndpoint, pprof.Index)
	mux.HandleFunc(metrics.ProfileEndpoint, pprof.Profile)
	mux.HandleFunc(metrics.ProfilingCmdEndpoint, pprof.Cmdline)
	mux.HandleFunc(metrics.ProfilingSymbolEndpoint, pprof.Symbol)
	mux.HandleFunc(metrics.ProfilingTraceEndpoint, pprof.Trace)
	profilingServer := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: two * time.Minute,
		ReadTimeout:       two * time.Minute,
	}
	log.Infof("profiling server listening on port %d", c.ProfilingPort)
	if err := profilingServer.Serve(lis); err != nil {
		if err == http.ErrServerClosed {
			log.Warnf("http server for profiling stopped")
			return
		}
		log.Errorf("closed http connection for profiling server: %v", err)
		return
	}
}

func startMetricsHttpServer(c metrics.Config) {
	const ten = 10
	mux := http.NewServeMux()
	address := fmt.Sprintf("%s:%d", c.Host, c.Port)
	lis, err := net.Listen("tcp", address)
	if err != nil {
		log.Errorf("failed to create tcp listener for metrics: %v", err)
		return
	}
	mux.Handle(metrics.Endpoint, promhttp.Handler())

	metricsServer := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: ten * time.Second,
		ReadTimeout:       ten * time.Second,
	}
	log.Infof("metrics server listening on port %d", c.Port)
	if err := metricsServer.Serve(lis); err != nil {
		if err == http.ErrServerClosed {
			log.Warnf("http server for metrics stopped")
			return
		}
		log.Errorf("closed http connection for metrics server: %v", err)
		return
	}
}

package cmd

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/psantana5/container-control/pkg/adapter"
	_ "github.com/psantana5/container-control/pkg/adapter/execadapter"
	"github.com/psantana5/container-control/pkg/api"
	"github.com/psantana5/container-control/pkg/config"
	"github.com/psantana5/container-control/pkg/controller"
	"github.com/psantana5/container-control/pkg/logging"
	"github.com/psantana5/container-control/pkg/metrics"
	"github.com/psantana5/container-control/pkg/privilege"
	"github.com/psantana5/container-control/pkg/shutdown"
)

var serveCfgFile string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the control core",
	Long: `Loads the configuration, resolves the configured workload adapter and
serves the control surface until terminated. Intended to run as PID 1 (or
under a minimal init) inside the workload container.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&serveCfgFile, "config", "c", "", "config file (default /etc/ccc/config.yaml, then ./config.yaml)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(serveCfgFile)
	if err != nil {
		return err
	}

	log := logging.NewLogger("ccc", logging.ParseLevel(cfg.LogLevel), cfg.LogFormat == "json")
	log.Info("starting container control core", map[string]interface{}{
		"adapter": cfg.AdapterName,
		"listen":  cfg.ListenAddr,
		"policy":  string(cfg.Policy),
	})

	// Both of these are fatal: a core that cannot resolve its adapter or
	// its unprivileged identity must refuse to serve traffic.
	sep, err := privilege.New(cfg.RunAsUser)
	if err != nil {
		log.Fatal("privilege separation unavailable", map[string]interface{}{"error": err.Error()})
	}
	ad, err := adapter.New(cfg.AdapterName, cfg.AdapterStatic)
	if err != nil {
		log.Fatal("adapter resolution failed", map[string]interface{}{"error": err.Error()})
	}

	agg := metrics.NewAggregator()
	ops := metrics.NewOps(promclient.DefaultRegisterer)
	ctrl := controller.New(cfg, ad, sep, agg, log)

	handler := api.NewHandler(ctrl, ops, promclient.DefaultGatherer, log)
	router := mux.NewRouter()
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Teardown bound: workload stop gets the configured stop timeout, plus
	// headroom for draining the HTTP server.
	sd := shutdown.New(cfg.StopTimeout+10*time.Second, log)
	sd.Register("workload", ctrl.Shutdown)
	sd.Register("http", shutdown.StopHTTPServer(srv, "control"))

	go func() {
		log.Info("control surface listening", map[string]interface{}{"addr": cfg.ListenAddr})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("control server failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	sd.Wait()
	return nil
}

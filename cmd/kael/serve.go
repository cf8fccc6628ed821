package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/codefionn/kael/internal/logger"
	"github.com/codefionn/kael/internal/pidfile"
	"github.com/codefionn/kael/internal/pprof"
	"github.com/codefionn/kael/internal/web"
	"github.com/spf13/cobra"
)

var (
	serveAddr       string
	servePprof      bool
	serveCPUProfile string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the terminal over a websocket",
	Long: `Starts the terminal bridge. Clients connect to /ws with the printed token,
receive terminal output and send input lines, prompts and resize requests.
Prometheus metrics are served on /metrics.

Only one bridge runs per state directory.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		pid := pidfile.New(cfg.BridgePIDPath())
		if err := pid.Acquire(); err != nil {
			return err
		}
		defer func() {
			if err := pid.Release(); err != nil {
				logger.Warn("%v", err)
			}
		}()

		if serveCPUProfile != "" {
			prof, err := pprof.StartCPUProfile(serveCPUProfile)
			if err != nil {
				return err
			}
			defer func() {
				if err := prof.Stop(); err != nil {
					logger.Warn("%v", err)
				}
			}()
		}

		a := newApp(cfg)
		defer a.Close()
		a.startBackground(ctx)

		addr := serveAddr
		if addr == "" {
			addr = cfg.BridgeAddr
		}
		srv, err := web.NewServer(web.Options{
			Addr:      addr,
			Token:     os.Getenv("KAEL_BRIDGE_TOKEN"),
			Backend:   a.shell,
			Gatherer:  a.registry,
			Profiling: servePprof,
			Status:    a.monitor.Status,
		})
		if err != nil {
			return err
		}
		if err := srv.Start(); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Terminal bridge: %s\n", srv.URL())

		<-ctx.Done()
		logger.Info("shutting down terminal bridge")
		return srv.Stop()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config bridge_addr)")
	serveCmd.Flags().BoolVar(&servePprof, "pprof", false, "serve runtime profiles under /debug/pprof")
	serveCmd.Flags().StringVar(&serveCPUProfile, "cpu-profile", "", "write a CPU profile to this file until shutdown")
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"jobsentry-engine/internal/app"
	"jobsentry-engine/internal/httpapi"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local HTTP API",
	Long:  `Start the HTTP API on 127.0.0.1 and, when email.enabled is set, the scheduled mailbox import.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides app.port)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	userCfgPath, cfg, loadCfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.App.Port = servePort
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.StartSchedule(ctx); err != nil {
		return err
	}

	mux := httpapi.NewMux(a.Deps(userCfgPath, loadCfg))

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.App.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           httpapi.Handler(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	token, err := shutdownToken(dataDir)
	if err != nil {
		return fmt.Errorf("shutdown token: %w", err)
	}
	mux.HandleFunc("/shutdown", shutdownHandler(token, srv.Shutdown))

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	log.Printf("engine listening on http://%s (config=%s)", addr, userCfgPath)
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Printf("engine stopped")
	return nil
}

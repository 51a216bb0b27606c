package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/facegate/facegate/internal/access"
	"github.com/facegate/facegate/internal/camera"
	"github.com/facegate/facegate/internal/config"
	"github.com/facegate/facegate/internal/monitor"
	"github.com/facegate/facegate/internal/notify"
	"github.com/facegate/facegate/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the access-control daemon",
	Long: `Start the frame loop against the configured camera and expose the
HTTP control surface. The daemon keeps running through camera and model
hiccups; a bad frame is a skipped frame, never a crash.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func newCameraSource(cfg *config.Config) (camera.Source, error) {
	switch {
	case cfg.Camera.SnapshotURL != "":
		return camera.NewSnapshot(cfg.Camera.SnapshotURL), nil
	case cfg.Camera.Dir != "":
		return camera.NewDir(cfg.Camera.Dir)
	default:
		return nil, errors.New("either CAMERA_SNAPSHOT_URL or CAMERA_DIR must be set")
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	log := newLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, st, err := openGallery(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("opening gallery: %w", err)
	}
	defer st.Close()

	source, err := newCameraSource(cfg)
	if err != nil {
		return err
	}
	defer source.Close()

	notifier := notify.NewFromConfig(cfg.Notify, log.With().Str("component", "notify").Logger())
	controller := access.New(
		cfg.Access.HoldDuration,
		cfg.Access.Cooldown,
		cfg.Notify.Message,
		notifier,
		log.With().Str("component", "access").Logger(),
	)
	defer controller.Close()

	p := newPipeline(cfg, g, log)
	mon := monitor.New(source, p, controller, g, cfg.Camera.Tick,
		log.With().Str("component", "monitor").Logger())

	server := web.NewServer(cfg.Web.Host, cfg.Web.Port, mon, controller, g,
		log.With().Str("component", "web").Logger())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("shutting down")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("web server shutdown failed")
		}
	}()

	monitorDone := make(chan error, 1)
	go func() {
		monitorDone <- mon.Run(ctx)
	}()

	if err := server.Start(); err != nil {
		cancel()
		<-monitorDone
		return err
	}

	if err := <-monitorDone; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

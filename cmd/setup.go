package cmd

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/facegate/facegate/internal/config"
	"github.com/facegate/facegate/internal/gallery"
	"github.com/facegate/facegate/internal/match"
	"github.com/facegate/facegate/internal/pipeline"
	"github.com/facegate/facegate/internal/store"
	"github.com/facegate/facegate/internal/store/postgres"
	"github.com/facegate/facegate/internal/store/sqlite"
	"github.com/facegate/facegate/internal/vision"
)

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var w io.Writer = os.Stdout
	if cfg.Log.Format == "console" {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		return sqlite.Open(cfg.Store.Path)
	case "postgres":
		if cfg.Store.DSN == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
		return postgres.Open(ctx, cfg.Store.DSN, cfg.Vision.EmbeddingDim)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// openGallery opens the configured store and loads the gallery from it.
// The caller owns the returned store and must close it.
func openGallery(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*gallery.Gallery, store.Store, error) {
	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	if cfg.Store.Reset {
		log.Warn().Msg("STORE_RESET is set, wiping enrolled identities")
		if err := st.Reset(ctx); err != nil {
			st.Close()
			return nil, nil, err
		}
	}

	g := gallery.New(cfg.Vision.EmbeddingDim, st, log.With().Str("component", "gallery").Logger())
	if err := g.Load(ctx); err != nil {
		st.Close()
		return nil, nil, err
	}
	return g, st, nil
}

func newMatcher(cfg *config.Config, g *gallery.Gallery) match.Matcher {
	if cfg.Vision.MatchIndex == "hnsw" {
		return match.NewIndex(g, cfg.Vision.DistanceThreshold)
	}
	return match.NewLinear(g, cfg.Vision.DistanceThreshold)
}

// decodeImageFile loads a single image from disk.
func decodeImageFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding image %s: %w", path, err)
	}
	return img, nil
}

func newPipeline(cfg *config.Config, g *gallery.Gallery, log zerolog.Logger) *pipeline.Pipeline {
	client := vision.NewClient(cfg.Vision.ServiceURL, cfg.Vision.EmbeddingDim)
	return pipeline.New(
		client,
		client,
		newMatcher(cfg, g),
		g,
		cfg.Vision.MinConfidence,
		cfg.Vision.CropSide,
		log.With().Str("component", "pipeline").Logger(),
	)
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/spf13/cobra"

	"github.com/facegate/facegate/internal/camera"
	"github.com/facegate/facegate/internal/config"
	"github.com/facegate/facegate/internal/pipeline"
)

var registerCmd = &cobra.Command{
	Use:   "register <name>",
	Short: "Enroll a subject from a photo or the camera",
	Long: `Capture a face and enroll it under the given name. The face comes
from --image when provided, otherwise from a fresh camera snapshot. The
single highest-confidence detection in the frame is used.`,
	Args: cobra.ExactArgs(1),
	RunE: runRegister,
}

func init() {
	rootCmd.AddCommand(registerCmd)
	registerCmd.Flags().String("image", "", "Image file to enroll from instead of the camera")
}

func captureFrame(ctx context.Context, cfg *config.Config, imagePath string) (image.Image, error) {
	if imagePath != "" {
		return decodeImageFile(imagePath)
	}
	if cfg.Camera.SnapshotURL == "" {
		return nil, errors.New("no --image given and CAMERA_SNAPSHOT_URL is not set")
	}
	return camera.NewSnapshot(cfg.Camera.SnapshotURL).NextFrame(ctx)
}

func runRegister(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	log := newLogger(cfg)
	name := args[0]
	ctx := context.Background()

	frame, err := captureFrame(ctx, cfg, mustGetString(cmd, "image"))
	if err != nil {
		return err
	}

	g, st, err := openGallery(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	id, err := newPipeline(cfg, g, log).CaptureAndEnroll(ctx, frame, name)
	switch {
	case errors.Is(err, pipeline.ErrNoFaceDetected):
		return errors.New("no face detected in the frame")
	case errors.Is(err, pipeline.ErrLowConfidence):
		return errors.New("face detection confidence too low, try a clearer shot")
	case err != nil:
		return err
	}

	fmt.Printf("Registered %s (id %d)\n", name, id)
	return nil
}

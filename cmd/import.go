package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/facegate/facegate/internal/config"
)

var importCmd = &cobra.Command{
	Use:   "import <dir>",
	Short: "Bulk-enroll subjects from a directory of photos",
	Long: `Enroll every image in a directory. The file name (without extension)
becomes the subject name, so "alice.jpg" enrolls "alice". Files that
fail detection are reported and skipped; the rest still go through.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	log := newLogger(cfg)
	dir := args[0]
	ctx := context.Background()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".jpg", ".jpeg", ".png":
			files = append(files, entry.Name())
		}
	}
	if len(files) == 0 {
		return fmt.Errorf("no images found in %s", dir)
	}
	sort.Strings(files)

	g, st, err := openGallery(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	p := newPipeline(cfg, g, log)
	bar := progressbar.Default(int64(len(files)), "enrolling")

	enrolled, skipped := 0, 0
	for _, file := range files {
		_ = bar.Add(1)
		name := strings.TrimSuffix(file, filepath.Ext(file))

		frame, err := decodeImageFile(filepath.Join(dir, file))
		if err != nil {
			fmt.Printf("\nSkipping %s: %v\n", file, err)
			skipped++
			continue
		}

		if _, err := p.CaptureAndEnroll(ctx, frame, name); err != nil {
			fmt.Printf("\nSkipping %s: %v\n", file, err)
			skipped++
			continue
		}
		enrolled++
	}

	fmt.Printf("\nEnrolled %d subject(s), skipped %d\n", enrolled, skipped)
	return nil
}

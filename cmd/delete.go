package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/facegate/facegate/internal/config"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Remove enrolled subjects by name",
	Long: `Remove every enrolled identity whose name matches exactly. Duplicate
names are allowed at enrollment, so one delete can remove several
identities. An unknown name is reported, not treated as an error.`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	log := newLogger(cfg)
	name := args[0]
	ctx := context.Background()

	g, st, err := openGallery(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	deleted, err := g.DeleteByName(ctx, name)
	if err != nil {
		return err
	}

	if deleted == 0 {
		fmt.Printf("No subject named %q\n", name)
		return nil
	}
	fmt.Printf("Deleted %d subject(s) named %q\n", deleted, name)
	return nil
}

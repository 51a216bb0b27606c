package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/facegate/facegate/internal/config"
)

var subjectsCmd = &cobra.Command{
	Use:   "subjects",
	Short: "List enrolled subjects",
	RunE:  runSubjects,
}

func init() {
	rootCmd.AddCommand(subjectsCmd)
}

func runSubjects(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	log := newLogger(cfg)
	ctx := context.Background()

	g, st, err := openGallery(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	identities := g.All()
	if len(identities) == 0 {
		fmt.Println("No subjects enrolled")
		return nil
	}

	for _, identity := range identities {
		fmt.Printf("%4d  %s\n", identity.ID, identity.Name)
	}
	fmt.Printf("\n%d subject(s)\n", len(identities))
	return nil
}

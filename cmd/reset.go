package cmd

import (
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/mkarlsv/votify/config"
	"github.com/mkarlsv/votify/store"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all Votify data from the store",
	Long:  `This command deletes every Votify key from the key-value store: users, groups, voting sessions, votes and auth tokens.`,
	Run:   reset,
}

func init() {
	rootCmd.AddCommand(resetCmd)
}

func reset(cmd *cobra.Command, _ []string) {
	cfg, err := config.Load(rootCmdPersistentFlags.ConfigFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	st, err := store.New(cmd.Context(), cfg)
	if err != nil {
		log.Fatalf("failed to initialize store: %v", err)
	}
	defer st.Close() //nolint:errcheck

	log.Info("deleting all votify data...")
	if err := st.Reset(cmd.Context()); err != nil {
		log.Fatalf("failed to reset store: %v", err)
	}
	log.Info("store reset complete")
}

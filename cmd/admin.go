package cmd

import (
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/mkarlsv/votify/config"
	"github.com/mkarlsv/votify/store"
)

var adminCmdFlags struct {
	Revoke bool
}

var adminCmd = &cobra.Command{
	Use:   "admin <username>",
	Short: "Grant or revoke the admin flag for a user",
	Args:  cobra.ExactArgs(1),
	Run:   admin,
}

func init() {
	adminCmd.Flags().BoolVar(&adminCmdFlags.Revoke, "revoke", false, "Revoke the admin flag instead of granting it")

	rootCmd.AddCommand(adminCmd)
}

func admin(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(rootCmdPersistentFlags.ConfigFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	st, err := store.New(cmd.Context(), cfg)
	if err != nil {
		log.Fatalf("failed to initialize store: %v", err)
	}
	defer st.Close() //nolint:errcheck

	user, err := st.GetUserByUsername(cmd.Context(), args[0])
	if err != nil {
		log.Fatalf("failed to load user: %v", err)
	}

	if err := st.SetAdmin(cmd.Context(), user.ID, !adminCmdFlags.Revoke); err != nil {
		log.Fatalf("failed to update admin flag: %v", err)
	}

	if adminCmdFlags.Revoke {
		log.Info("admin flag revoked", "username", user.Username)
	} else {
		log.Info("admin flag granted", "username", user.Username)
	}
}

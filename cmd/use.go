package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Rorical/RoriTable/internal/config"
)

var useCmd = &cobra.Command{
	Use:   "use [profile-name]",
	Short: "Switch to a profile and start the chat app",
	Long:  `Switch to the specified profile, save it as active and start the chat application.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		if err := cfg.SetActive(args[0]); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		return runChat(cfg)
	},
}

func init() {
	rootCmd.AddCommand(useCmd)
}

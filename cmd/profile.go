package cmd

import (
	"errors"
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/Rorical/RoriTable/internal/config"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage profiles",
	Long:  `Manage profiles. A profile pairs model provider credentials with a SmartSuite account.`,
}

func setOrNot(v string) string {
	if v == "" {
		return "Not set"
	}
	return "Set"
}

var listProfilesCmd = &cobra.Command{
	Use:   "list",
	Short: "List all profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Active Profile: %s\n\n", cfg.ActiveProfile)
		for _, name := range cfg.ProfileNames() {
			profile := cfg.Profiles[name]
			marker := ""
			if name == cfg.ActiveProfile {
				marker = " (active)"
			}
			fmt.Fprintf(out, "  %s%s\n", name, marker)
			fmt.Fprintf(out, "    Model: %s\n", profile.Model)
			fmt.Fprintf(out, "    API Key: %s\n", setOrNot(profile.APIKey))
			fmt.Fprintf(out, "    SmartSuite: %s\n\n", setOrNot(profile.SmartSuiteAPIKey))
		}
		return nil
	},
}

var showProfileCmd = &cobra.Command{
	Use:   "show [profile-name]",
	Short: "Show profile details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		profile, exists := cfg.Profiles[args[0]]
		if !exists {
			return fmt.Errorf("%w: %q", config.ErrProfileNotFound, args[0])
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Profile: %s\n", args[0])
		fmt.Fprintf(out, "Model: %s\n", profile.Model)
		fmt.Fprintf(out, "Base URL: %s\n", profile.BaseURL)
		fmt.Fprintf(out, "API Key: %s\n", setOrNot(profile.APIKey))
		fmt.Fprintf(out, "SmartSuite API Key: %s\n", setOrNot(profile.SmartSuiteAPIKey))
		fmt.Fprintf(out, "SmartSuite Account: %s\n", profile.SmartSuiteAccountID)
		fmt.Fprintf(out, "Solution: %s\n", profile.SolutionID)
		return nil
	},
}

// promptProfile asks for every profile field, offering the current values as defaults.
func promptProfile(profile config.Profile) (config.Profile, error) {
	fields := []struct {
		label  string
		target *string
		secret bool
	}{
		{"API Key", &profile.APIKey, true},
		{"Model", &profile.Model, false},
		{"Base URL (optional)", &profile.BaseURL, false},
		{"SmartSuite API Key", &profile.SmartSuiteAPIKey, true},
		{"SmartSuite Account ID", &profile.SmartSuiteAccountID, false},
		{"Solution ID", &profile.SolutionID, false},
	}
	for _, f := range fields {
		prompt := promptui.Prompt{
			Label:     f.label,
			Default:   *f.target,
			AllowEdit: true,
		}
		if f.secret {
			prompt.Mask = '*'
		}
		value, err := prompt.Run()
		if err != nil {
			return profile, fmt.Errorf("prompt failed: %w", err)
		}
		*f.target = value
	}
	return profile, nil
}

// selectProfile returns args[0] or asks the user to pick from names.
func selectProfile(args []string, label string, names []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if len(names) == 0 {
		return "", config.ErrNoProfiles
	}
	prompt := promptui.Select{Label: label, Items: names}
	_, name, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("selection failed: %w", err)
	}
	return name, nil
}

var addProfileCmd = &cobra.Command{
	Use:   "add [profile-name]",
	Short: "Add a new profile",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}

		name := ""
		if len(args) > 0 {
			name = args[0]
		} else {
			prompt := promptui.Prompt{Label: "Profile name"}
			if name, err = prompt.Run(); err != nil {
				return fmt.Errorf("prompt failed: %w", err)
			}
		}
		if _, exists := cfg.Profiles[name]; exists {
			return fmt.Errorf("%w: %q", config.ErrProfileExists, name)
		}

		profile, err := promptProfile(config.Default().Profiles["default"])
		if err != nil {
			return err
		}
		cfg.Profiles[name] = profile
		if err := cfg.Save(); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Profile '%s' added\n", name)
		return nil
	},
}

var editProfileCmd = &cobra.Command{
	Use:   "edit [profile-name]",
	Short: "Edit an existing profile",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		if len(args) == 0 && len(cfg.Profiles) == 1 {
			args = []string{cfg.ActiveProfile}
		}
		name, err := selectProfile(args, "Select profile to edit", cfg.ProfileNames())
		if err != nil {
			return err
		}
		profile, exists := cfg.Profiles[name]
		if !exists {
			return fmt.Errorf("%w: %q", config.ErrProfileNotFound, name)
		}

		if profile, err = promptProfile(profile); err != nil {
			return err
		}
		cfg.Profiles[name] = profile
		if err := cfg.Save(); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Profile '%s' updated\n", name)
		return nil
	},
}

var deleteProfileCmd = &cobra.Command{
	Use:   "delete [profile-name]",
	Short: "Delete a profile",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		name, err := selectProfile(args, "Select profile to delete", cfg.ProfileNames())
		if err != nil {
			return err
		}
		if _, exists := cfg.Profiles[name]; !exists {
			return fmt.Errorf("%w: %q", config.ErrProfileNotFound, name)
		}

		confirm := promptui.Prompt{
			Label:     fmt.Sprintf("Delete profile '%s'", name),
			IsConfirm: true,
		}
		if _, err := confirm.Run(); err != nil {
			if errors.Is(err, promptui.ErrAbort) {
				fmt.Fprintln(cmd.OutOrStdout(), "Deletion cancelled")
				return nil
			}
			return fmt.Errorf("prompt failed: %w", err)
		}

		delete(cfg.Profiles, name)
		if len(cfg.Profiles) == 0 {
			cfg.Profiles["default"] = config.Default().Profiles["default"]
		}
		if cfg.ActiveProfile == name {
			cfg.ActiveProfile = cfg.ProfileNames()[0]
		}
		if err := cfg.Save(); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Profile '%s' deleted\n", name)
		return nil
	},
}

var switchProfileCmd = &cobra.Command{
	Use:   "switch [profile-name]",
	Short: "Switch to a different profile",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}

		var others []string
		for _, name := range cfg.ProfileNames() {
			if name != cfg.ActiveProfile {
				others = append(others, name)
			}
		}
		name, err := selectProfile(args, "Select profile to switch to", others)
		if err != nil {
			return err
		}
		if err := cfg.SetActive(name); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Switched to profile '%s'\n", name)
		return nil
	},
}

func init() {
	profileCmd.AddCommand(listProfilesCmd)
	profileCmd.AddCommand(showProfileCmd)
	profileCmd.AddCommand(addProfileCmd)
	profileCmd.AddCommand(editProfileCmd)
	profileCmd.AddCommand(deleteProfileCmd)
	profileCmd.AddCommand(switchProfileCmd)
}

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Rorical/RoriTable/internal/config"
	"github.com/Rorical/RoriTable/internal/core"
	"github.com/Rorical/RoriTable/internal/logging"
)

var autoApprove bool

// terminalConfirmator asks on the terminal before writes. Without a terminal
// it refuses unless --yes was given. Tool calls run in parallel, so prompts
// are taken one at a time.
type terminalConfirmator struct {
	interactive bool
	approve     bool
	ask         func(label string) bool

	mu sync.Mutex
}

func newTerminalConfirmator(interactive, approve bool) *terminalConfirmator {
	return &terminalConfirmator{interactive: interactive, approve: approve, ask: promptConfirm}
}

func promptConfirm(label string) bool {
	prompt := promptui.Prompt{Label: label, IsConfirm: true}
	_, err := prompt.Run()
	return err == nil
}

func (c *terminalConfirmator) RequestConfirmation(operation, command string, dangerous bool) bool {
	if c.approve {
		return true
	}
	if !c.interactive {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ask(fmt.Sprintf("%s: %s", operation, command))
}

var askCmd = &cobra.Command{
	Use:   "ask [message]",
	Short: "Run a single request and print the answer",
	Long: `Run one request without the chat UI. The message is taken from the
arguments, or from standard input when no arguments are given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}

		stdinTerminal := term.IsTerminal(int(os.Stdin.Fd()))
		message := strings.TrimSpace(strings.Join(args, " "))
		if message == "" && !stdinTerminal {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read message: %w", err)
			}
			message = strings.TrimSpace(string(data))
		}
		if message == "" {
			return errors.New("no message given")
		}

		level, err := logging.ParseLevel(cfg.GetLogLevel())
		if err != nil {
			return err
		}
		logger := logging.New(cmd.ErrOrStderr(), level, term.IsTerminal(int(os.Stderr.Fd())))

		a, err := core.NewAgent(cfg, core.AgentOptions{
			Confirmator: newTerminalConfirmator(stdinTerminal, autoApprove),
			Logger:      logger,
		})
		if err != nil {
			return err
		}

		result, err := a.Run(cmd.Context(), nil, message)
		if err != nil {
			return err
		}
		logger.Debug("request finished", "rounds", result.Rounds)
		fmt.Fprintln(cmd.OutOrStdout(), result.Answer)
		return nil
	},
}

func init() {
	askCmd.Flags().BoolVarP(&autoApprove, "yes", "y", false, "approve record creation without asking")
	rootCmd.AddCommand(askCmd)
}

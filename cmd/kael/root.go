package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/codefionn/kael/internal/config"
	"github.com/codefionn/kael/internal/logger"
	"github.com/codefionn/kael/internal/secrets"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const maxPasswordAttempts = 3

var (
	configPath string
	logLevel   string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "kael",
	Short: "Assistant shell: a terminal plus AI providers with fallback",
	Long: `kael routes each line you type either to a live shell or to an AI provider.

Lines that look like commands (a leading "!", a known shell verb, or a shell
operator) run in the terminal. Everything else is a prompt: questions about
the local system go to the local model, other prompts go to the preferred
provider and fall back through the provider order on failure.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if logLevel != "" {
			loaded.LogLevel = logLevel
		}
		if err := logger.Init(logger.ParseLevel(loaded.LogLevel), loaded.LogPath); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger.Info("kael starting: %s", cmd.CommandPath())

		if err := ensureSecretsPassword(loaded); err != nil {
			return fmt.Errorf("failed to unlock API keys: %w", err)
		}
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.GetConfigPath(), "config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error, none)")

	rootCmd.AddCommand(chatCmd, shellCmd, serveCmd, providersCmd, usageCmd, keysCmd)
}

func ensureSecretsPassword(c *config.Config) error {
	if !c.Secrets.PasswordSet {
		return c.ApplySecretsPassword("")
	}

	if pw := strings.TrimSpace(os.Getenv("KAEL_SECRETS_PASSWORD")); pw != "" {
		return c.ApplySecretsPassword(pw)
	}

	for attempt := 0; attempt < maxPasswordAttempts; attempt++ {
		pw, err := promptSecret("Enter encryption password: ")
		if err != nil {
			return err
		}
		if err := c.ApplySecretsPassword(pw); err != nil {
			if errors.Is(err, secrets.ErrInvalidPassword) {
				fmt.Fprintln(os.Stderr, "Invalid password, try again.")
				continue
			}
			return err
		}
		return nil
	}
	return errors.New("too many invalid password attempts")
}

// promptSecret reads one line without echo when stdin is a terminal.
func promptSecret(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	fmt.Fprint(os.Stderr, prompt)

	if term.IsTerminal(fd) {
		bytes, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(bytes)), nil
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

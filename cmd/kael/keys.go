package main

import (
	"fmt"
	"os"

	"github.com/codefionn/kael/internal/provider"
	"github.com/spf13/cobra"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage provider API keys",
}

var keysSetCmd = &cobra.Command{
	Use:   "set <provider>",
	Short: "Store an API key for a provider",
	Long: `Prompts for the key without echo and stores it in the key cache file,
sealed when a secrets password is configured. With KAEL_ID_TOKEN set the key
is also pushed to the remote key store.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, ok := provider.Parse(args[0])
		if !ok {
			return fmt.Errorf("unknown provider %q", args[0])
		}
		if !id.NeedsKey() {
			return fmt.Errorf("%s does not use an API key", id.Label())
		}

		key, err := promptSecret(fmt.Sprintf("API key for %s: ", id.Label()))
		if err != nil {
			return err
		}

		a := newApp(cfg)
		defer a.Close()
		if err := a.keys.Save(cmd.Context(), id, key, a.user); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Saved key for %s.\n", id.Label())
		return nil
	},
}

var keysPasswordCmd = &cobra.Command{
	Use:   "password",
	Short: "Set or clear the password that seals stored keys",
	Long: `Sets the secrets password used to seal keys in the key cache file. An empty
password turns sealing off. Existing keys are re-written with the new setting.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		existing, err := newKeyFile(cfg).Load()
		if err != nil {
			return fmt.Errorf("read key cache: %w", err)
		}

		pw, err := promptSecret("New encryption password (empty to disable): ")
		if err != nil {
			return err
		}
		if err := cfg.UpdateSecretsPassword(pw); err != nil {
			return err
		}
		if err := cfg.Save(configPath); err != nil {
			return fmt.Errorf("save config: %w", err)
		}

		if len(existing) > 0 {
			if err := newKeyFile(cfg).Save(existing); err != nil {
				return fmt.Errorf("re-seal key cache: %w", err)
			}
		}
		fmt.Fprintln(os.Stderr, "Secrets password updated.")
		return nil
	},
}

func init() {
	keysCmd.AddCommand(keysSetCmd, keysPasswordCmd)
}

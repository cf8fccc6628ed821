package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/codefionn/kael/internal/assistant"
	"github.com/codefionn/kael/internal/provider"
	"github.com/codefionn/kael/internal/pty"
	"github.com/codefionn/kael/internal/router"
	"github.com/spf13/cobra"
)

var chatProvider string

var chatCmd = &cobra.Command{
	Use:   "chat [prompt]",
	Short: "Send one prompt and print the answer",
	Long: `Sends one prompt through the provider fallback chain and prints the answer.

Command-like input is run in a fresh terminal and its output is printed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		preferred := provider.ID("")
		if chatProvider != "" {
			id, ok := provider.Parse(chatProvider)
			if !ok {
				return fmt.Errorf("unknown provider %q", chatProvider)
			}
			preferred = id
		}

		a := newApp(cfg)
		defer a.Close()

		ctx := cmd.Context()
		text := strings.Join(args, " ")

		var sub *pty.Subscription
		if router.IsCommand(text) {
			sub = a.shell.Terminal().Subscribe()
			defer sub.Close()
		}

		reply := a.shell.SubmitTo(ctx, text, preferred)
		if reply.Kind == assistant.ReplyCommand {
			return drainTerminal(ctx, sub, os.Stdout)
		}

		newReplyPrinter(os.Stdout, os.Stderr).print(reply)
		if reply.Kind == assistant.ReplyError {
			return fmt.Errorf("request failed")
		}
		return nil
	},
}

func init() {
	chatCmd.Flags().StringVarP(&chatProvider, "provider", "p", "", "preferred provider (id or label)")
}

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/codefionn/kael/internal/pty"
	"github.com/spf13/cobra"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive assistant shell",
	Long: `Reads lines from stdin. Commands run in a persistent terminal whose output
is streamed to stdout; prompts are answered by the AI providers.

Special lines:
  /restart   replace the terminal with a fresh shell
  /exit      quit`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := newApp(cfg)
		defer a.Close()

		ctx := cmd.Context()
		a.startBackground(ctx)

		printer := newReplyPrinter(os.Stdout, os.Stderr)
		stop := streamTerminal(a.shell.Terminal(), os.Stdout)
		defer func() { stop() }()

		scanner := bufio.NewScanner(os.Stdin)
		fmt.Fprint(os.Stderr, "kael> ")
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			switch line {
			case "":
			case "/exit", "/quit":
				return nil
			case "/restart":
				sess, err := a.shell.RestartTerminal(ctx)
				stop()
				stop = streamTerminal(sess, os.Stdout)
				if err != nil {
					fmt.Fprintln(os.Stderr, "Terminal error: "+err.Error())
				}
			default:
				printer.print(a.shell.Submit(ctx, line))
			}
			fmt.Fprint(os.Stderr, "kael> ")
		}
		return scanner.Err()
	},
}

// streamTerminal copies sess output to w until the returned stop is called
// or the session ends.
func streamTerminal(sess *pty.Session, w io.Writer) func() {
	sub := sess.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for chunk := range sub.C() {
			_, _ = w.Write(chunk)
		}
	}()
	return func() {
		sub.Close()
		<-done
	}
}

// drainTerminal prints output from sub until the terminal has been quiet
// for a moment or ctx is done.
func drainTerminal(ctx context.Context, sub *pty.Subscription, w io.Writer) error {
	const quiet = 500 * time.Millisecond
	timer := time.NewTimer(2 * quiet)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case chunk, ok := <-sub.C():
			if !ok {
				return nil
			}
			_, _ = w.Write(chunk)
			timer.Reset(quiet)
		case <-timer.C:
			return nil
		}
	}
}

package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/codefionn/kael/internal/provider"
	"github.com/spf13/cobra"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List providers in fallback order with key availability",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := newApp(cfg)
		defer a.Close()

		order := a.order.Order()
		listed := make(map[provider.ID]bool, len(order))
		all := append([]provider.ID(nil), order...)
		for _, id := range order {
			listed[id] = true
		}
		for _, id := range provider.All() {
			if !listed[id] {
				all = append(all, id)
			}
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "#\tID\tNAME\tKEY")
		for i, id := range all {
			pos := "-"
			if listed[id] {
				pos = fmt.Sprint(i + 1)
			}
			status := "not needed"
			if id.NeedsKey() {
				if _, src := a.keys.Resolve(cmd.Context(), id, "", nil); src.String() != "none" {
					status = "from " + src.String()
				} else {
					status = "missing (" + strings.Join(provider.EnvVarHints(id), ", ") + ")"
				}
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", pos, id, id.Label(), status)
		}
		return w.Flush()
	},
}

var providersOrderCmd = &cobra.Command{
	Use:   "order <provider>...",
	Short: "Save the provider order",
	Long:  "Saves the provider order. Providers are given by id or label; unknown names are rejected.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var order []provider.ID
		for _, arg := range args {
			for _, name := range strings.Split(arg, ",") {
				if strings.TrimSpace(name) == "" {
					continue
				}
				id, ok := provider.Parse(name)
				if !ok {
					return fmt.Errorf("unknown provider %q", name)
				}
				order = append(order, id)
			}
		}

		a := newApp(cfg)
		defer a.Close()
		if err := a.order.Set(order); err != nil {
			return fmt.Errorf("save provider order: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Provider order saved: %v\n", a.order.Order())
		return nil
	},
}

func init() {
	providersCmd.AddCommand(providersOrderCmd)
}

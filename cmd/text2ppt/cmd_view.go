package main

import (
	"github.com/spf13/cobra"

	"text2ppt/cmd/text2ppt/tui"
)

var viewPlain bool

var viewCmd = &cobra.Command{
	Use:   "view <deck.json>",
	Short: "Open a saved slide deck in the viewer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := loadDeck(args[0])
		if err != nil {
			return err
		}
		if viewPlain {
			printDeck(d)
			return nil
		}

		ctx, cancel := commandContext(cmd)
		defer cancel()

		a, err := newApp(ctx, cfg, "")
		if err != nil {
			return err
		}
		defer a.Close()

		return runTUI(ctx, a, func(m tui.Model) tui.Model {
			return m.OpenDeck(d)
		})
	},
}

// runInteractive is the root command: the full composer.
func runInteractive(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	a, err := newApp(ctx, cfg, "")
	if err != nil {
		return err
	}
	defer a.Close()

	return runTUI(ctx, a, nil)
}

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"text2ppt/internal/history"
)

var historySearch string

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent chats for the signed-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		a, err := newApp(ctx, cfg, "")
		if err != nil {
			return err
		}
		defer a.Close()

		id, err := a.session.Require()
		if err != nil {
			return fmt.Errorf("please sign in to view your chat history")
		}

		chats := history.Filter(a.history.Fetch(ctx, id.Username), historySearch)
		if len(chats) == 0 {
			if historySearch != "" {
				fmt.Println("No chats found matching your search")
			} else {
				fmt.Println("No recent chats")
			}
			return nil
		}

		now := time.Now()
		for _, c := range chats {
			fmt.Printf("%-8s  %s\n", history.FormatTimestamp(c.Timestamp, now), c.Title)
			if c.Preview != "" && c.Preview != c.Title {
				fmt.Printf("          %s\n", c.Preview)
			}
		}
		return nil
	},
}

package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every pasty in the store",
	Long: `List every pasty in the store in id order, one line per pasty with
its type, view count and a content preview.

Example:
  berry-pasty list`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, kv, err := openStore()
		if err != nil {
			return err
		}
		defer kv.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		infos, err := store.ListAll(ctx)
		if err != nil {
			return err
		}
		for _, info := range infos {
			fmt.Printf("%-16s %-5s %8d  %s\n", info.ID, info.Type.String(), info.Stats.Views, preview(info.Content))
		}
		fmt.Printf("%d pasties\n", len(infos))
		return nil
	},
}

func preview(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}

func init() {
	rootCmd.AddCommand(listCmd)
}

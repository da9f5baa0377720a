package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// getCmd represents the get command
var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Print the content of a pasty",
	Long: `Print the raw content of a pasty straight from the store. Views are
not counted and tokens are not checked; this is an operator command.

Example:
  berry-pasty get abc123`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, kv, err := openStore()
		if err != nil {
			return err
		}
		defer kv.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		pasty, err := store.Get(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Println(pasty.Content)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
}

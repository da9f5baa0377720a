package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var rmToken string

// rmCmd represents the rm command
var rmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a pasty",
	Long: `Delete a pasty and everything stored for it. Locked pasties need the
matching token.

Example:
  berry-pasty rm abc123
  berry-pasty rm notes --token s3cret`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, kv, err := openStore()
		if err != nil {
			return err
		}
		defer kv.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Delete(ctx, args[0], rmToken); err != nil {
			return err
		}
		fmt.Printf("deleted %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rmCmd)
	rmCmd.Flags().StringVar(&rmToken, "token", "", "Access token for the pasty")
}

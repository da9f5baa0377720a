package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/GZTimeWalker/berry-pasty/pkg/domain"

	"github.com/spf13/cobra"
)

var (
	setType  string
	setToken string
)

// setCmd represents the set command
var setCmd = &cobra.Command{
	Use:   "set <id> <content>",
	Short: "Create or update a pasty",
	Long: `Create or update a pasty under the given id. Pass "-" as the content
to read it from stdin. The token rules are the same as over HTTP: a token
given at creation locks the pasty, and locked pasties need the matching
token for every later write.

Example:
  berry-pasty set notes "hello world"
  cat notes.txt | berry-pasty set notes - --token s3cret
  berry-pasty set gh https://github.com --type link`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		content := args[1]
		if content == "-" {
			raw, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			content = string(raw)
		}
		t, err := domain.ParseContentType(setType)
		if err != nil {
			return err
		}
		store, kv, err := openStore()
		if err != nil {
			return err
		}
		defer kv.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		created, err := store.CreateOrUpdate(ctx, id, content, t, setToken)
		if err != nil {
			return err
		}
		if created {
			fmt.Printf("created %s\n", id)
		} else {
			fmt.Printf("updated %s\n", id)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(setCmd)
	setCmd.Flags().StringVar(&setType, "type", "plain", `Content type, "plain" or "link"`)
	setCmd.Flags().StringVar(&setToken, "token", "", "Access token for the pasty")
}

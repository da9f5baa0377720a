package cmd

import (
	"os"

	"github.com/GZTimeWalker/berry-pasty/svc/db"

	"github.com/spf13/cobra"
)

var dbPath string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "berry-pasty",
	Short: "berry-pasty - pastebin and link shortener",
	Long: `berry-pasty is a self-hosted pastebin and link shortener backed by an
embedded key-value store. Run "berry-pasty serve" to start the HTTP API, or
use the admin subcommands to work on the store directly.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		rootCmd.PrintErrln("Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to the store (defaults to $DATABASE_PATH, then berry-pasty.db)")
}

// openStore opens the embedded store for one-shot admin commands. The engine
// takes an exclusive lock on the directory, so these commands cannot run
// while a server is using the same store.
func openStore() (*db.Store, *db.KV, error) {
	path := dbPath
	if path == "" {
		path = os.Getenv("DATABASE_PATH")
	}
	if path == "" {
		path = "berry-pasty.db"
	}
	kv, err := db.OpenKV(path)
	if err != nil {
		return nil, nil, err
	}
	return db.NewStore(kv), kv, nil
}

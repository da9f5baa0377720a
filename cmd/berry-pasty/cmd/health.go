package cmd

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var healthURL string

// healthCmd represents the health command
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check a running server",
	Long: `Check the health endpoint of a running berry-pasty server. Exits
non-zero when the server is unreachable or unhealthy, which makes it usable
as a container health check.

Example:
  berry-pasty health
  berry-pasty health --url http://10.0.0.5:8080/health`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		url := healthURL
		if url == "" {
			port := os.Getenv("PORT")
			if port == "" {
				port = "8080"
			}
			url = "http://localhost:" + port + "/health"
		}
		client := &http.Client{Timeout: 2 * time.Second}
		resp, err := client.Get(url)
		if err != nil {
			return fmt.Errorf("health check failed: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("health check returned %s", resp.Status)
		}
		fmt.Println("ok")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
	healthCmd.Flags().StringVar(&healthURL, "url", "", "Health endpoint URL (defaults to http://localhost:$PORT/health)")
}

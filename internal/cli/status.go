package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rxdesk/rxdesk/internal/config"
	"github.com/rxdesk/rxdesk/internal/credentials"
	"github.com/rxdesk/rxdesk/internal/messaging"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("🏷️ RxDesk Version")
		fmt.Printf("Version: %s\n", version)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and connection status",
	RunE: func(cmd *cobra.Command, args []string) error {
		printHeader("📊 RxDesk Status")
		fmt.Printf("Version: %s\n", version)

		if path, err := config.ConfigPath(); err == nil {
			if _, err := os.Stat(path); err == nil {
				fmt.Println("Config:  " + ok("Found") + " (" + path + ")")
			} else {
				fmt.Println("Config:  " + missing("Not found, using defaults") + " (" + path + ")")
			}
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		fmt.Printf("Database: %s\n", a.cfg.Paths.DBPath)
		fmt.Printf("Assistant: %s\n", a.cfg.Assistant.Strategy)

		present, err := a.credentials.Present()
		if err != nil {
			return err
		}
		for _, key := range credentials.Keys {
			if present[key] {
				fmt.Printf("  %-12s %s\n", key, ok("set"))
			} else {
				fmt.Printf("  %-12s %s\n", key, missing("unset"))
			}
		}

		cred, err := a.credentials.Load()
		if err != nil {
			fmt.Println("Connection: " + missing("Disconnected"))
			return nil
		}
		endpoint := a.client.Endpoint(cred.Identity())
		fmt.Println("Connection: " + ok("Connected"))
		fmt.Printf("  App ID:   %s\n", cred.ApplicationID)
		fmt.Printf("  Region:   %s\n", cred.Region)
		fmt.Printf("  Endpoint: %s\n", endpoint)
		if cred.WebhookURL != "" {
			fmt.Printf("  Webhook:  %s\n", cred.WebhookURL)
		}
		return nil
	},
}

func ok(s string) string      { return color.GreenString("✓ " + s) }
func missing(s string) string { return color.YellowString("✗ " + s) }

func regionNames() []string {
	out := make([]string, 0, 3)
	for _, r := range messaging.Regions() {
		out = append(out, r.String())
	}
	return out
}

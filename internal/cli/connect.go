package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rxdesk/rxdesk/internal/connection"
)

var connectInput connection.Input

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Validate and store messaging provider credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		printHeader("🔌 RxDesk Connect")
		if connectInput.APIToken == "" {
			connectInput.APIToken = os.Getenv("RXDESK_API_TOKEN")
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		if err := a.controller.Boot(ctx); err != nil {
			return err
		}

		fmt.Println("Validating credentials...")
		res, err := a.controller.Connect(ctx, connectInput)
		if err != nil {
			return err
		}
		fmt.Println(ok("Connected") + " to application " + res.Snapshot.ApplicationID + " (" + res.Snapshot.Region.String() + ")")
		if res.WebhookSent {
			if res.WebhookOK {
				fmt.Println("Webhook: " + ok("test event delivered"))
			} else {
				fmt.Println("Webhook: " + color.YellowString("⚠ test event failed; credentials were saved anyway"))
			}
		}
		return nil
	},
}

var disconnectCmd = &cobra.Command{
	Use:   "disconnect",
	Short: "Remove stored provider credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		printHeader("🔌 RxDesk Disconnect")
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		if err := a.controller.Disconnect(ctx); err != nil {
			return err
		}
		fmt.Println(ok("Disconnected"))
		return nil
	},
}

func init() {
	f := connectCmd.Flags()
	f.StringVar(&connectInput.ApplicationID, "app-id", "", "provider application id")
	f.StringVar(&connectInput.APIToken, "token", "", "provider API token (or RXDESK_API_TOKEN)")
	f.StringVar(&connectInput.Region, "region", "US", "provider region ("+strings.Join(regionNames(), ", ")+")")
	f.StringVar(&connectInput.WebhookURL, "webhook", "", "optional webhook url for a connectivity test")
}

package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// version can be overridden at build time via:
	// go build -ldflags "-X github.com/rxdesk/rxdesk/internal/cli.version=1.2.3"
	version = "0.4.0"
	logo    = "\n" +
		"  ____      ____            _\n" +
		" |  _ \\__  _|  _ \\  ___ ___| | __\n" +
		" | |_) \\ \\/ / | | |/ _ \\ __| |/ /\n" +
		" |  _ < >  <| |_| |  __\\__ \\   <\n" +
		" |_| \\_\\_/\\_\\____/ \\___|___/_|\\_\\\n"
)

var rootCmd = &cobra.Command{
	Use:   "rxdesk",
	Short: "RxDesk - pharmacy messaging console",
	Long:  color.CyanString(logo) + "\nConnects a pharmacy console to its conversational-messaging provider.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(disconnectCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(snippetCmd)
}

func printHeader(title string) {
	fmt.Println(color.CyanString(logo))
	if title != "" {
		fmt.Println(title)
		fmt.Println("─────────────────────")
	}
}

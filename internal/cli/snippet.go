package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rxdesk/rxdesk/internal/botembed"
)

var snippetCmd = &cobra.Command{
	Use:   "snippet <bot-url>",
	Short: "Print the website integration code for the assistant bot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		code, err := botembed.Snippet(args[0])
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), code)
		return nil
	},
}

package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rxdesk/rxdesk/internal/conversation"
)

var (
	chatSession string
	chatMessage string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Send one message through the chat widget",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		w, err := a.chats.Widget(chatSession)
		if err != nil {
			return err
		}
		if _, err := w.Open(ctx); err != nil {
			return err
		}
		ex, err := w.Send(ctx, chatMessage)
		if err != nil {
			return err
		}
		printMessage(ex.User)
		printMessage(ex.Reply)
		if ex.Fallback {
			fmt.Println(color.YellowString("(assistant unavailable, fallback reply)"))
		}
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print a session's conversation",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		w, err := a.chats.Widget(chatSession)
		if err != nil {
			return err
		}
		msgs, err := w.Messages(ctx)
		if err != nil {
			return err
		}
		if len(msgs) == 0 {
			fmt.Println("No messages yet.")
			return nil
		}
		for _, m := range msgs {
			printMessage(m)
		}
		return nil
	},
}

func printMessage(m conversation.Message) {
	ts := m.Timestamp.Local().Format("15:04:05")
	if m.Sender == conversation.SenderUser {
		fmt.Printf("%s %s %s\n", color.HiBlackString(ts), color.CyanString("you:"), m.Content)
		return
	}
	fmt.Printf("%s %s %s\n", color.HiBlackString(ts), color.GreenString("agent:"), m.Content)
}

func init() {
	chatCmd.Flags().StringVarP(&chatSession, "session", "s", "cli", "session id")
	chatCmd.Flags().StringVarP(&chatMessage, "message", "m", "", "message text")
	_ = chatCmd.MarkFlagRequired("message")
	historyCmd.Flags().StringVarP(&chatSession, "session", "s", "cli", "session id")
}

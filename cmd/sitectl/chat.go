package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vyvo/site/backend/pkg/chat"
)

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Talk to the support assistant",
	Long: `Send a message to the support assistant. Without a message argument an
interactive session starts; an empty line or "/quit" ends it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := chat.NewClient(cfg.ChatWebhookURL, chat.WithTimeout(cfg.ChatTimeout), chat.WithLogger(logger))
		widget := chat.NewWidget(client, nil, nil)
		sessionID := widget.Open()
		defer widget.Close()

		out := cmd.OutOrStdout()
		if len(args) > 0 {
			reply, err := widget.Send(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(out, renderBotReply(reply))
			return nil
		}

		fmt.Fprintln(out, dimStyle.Render("session "+sessionID))
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for {
			fmt.Fprint(out, userStyle.Render("you")+" ")
			if !scanner.Scan() {
				return scanner.Err()
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" || line == "/quit" {
				return nil
			}
			reply, err := widget.Send(cmd.Context(), line)
			if err != nil && !errors.Is(err, chat.ErrEmptyMessage) {
				return err
			}
			fmt.Fprintln(out, renderBotReply(reply))
		}
	},
}

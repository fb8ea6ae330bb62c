package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"intake/internal/config"
	"intake/internal/model"
	"intake/internal/output"
	"intake/internal/service"
)

func newMessagesCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "messages",
		Short: "Browse the inbound message inbox",
	}
	cmd.AddCommand(newMessagesListCommand(root))
	return cmd
}

func newMessagesListCommand(root *rootOptions) *cobra.Command {
	var (
		q         model.MessageQuery
		direction string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List inbox messages",
		Example: `  intake messages list --type request --sort sentAt --direction desc
  intake messages list --contact sara -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q.SortDir = model.SortDirection(direction)
			cfg := config.FromEnv()
			messages := service.NewMessageService(service.NewBackendClient(&cfg.Backend, nil), &cfg.Messages)

			resp, err := messages.List(cmd.Context(), q)
			if err != nil {
				return err
			}
			format := root.format("")
			if format != output.FormatTable {
				return root.write(cmd, format, resp)
			}
			if err := root.write(cmd, format, messagesView(resp.Messages)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Page %d of %d (%d messages)\n", resp.Meta.CurrentPage, resp.Meta.TotalPages, resp.Meta.TotalCount)
			return nil
		},
	}

	cmd.Flags().IntVar(&q.Page, "page", 1, "Page number")
	cmd.Flags().StringVar(&q.SortColumn, "sort", "", "Sort column (default sentAt)")
	cmd.Flags().StringVar(&direction, "direction", "", "Sort direction: asc or desc")
	cmd.Flags().StringVar(&q.Type, "type", "", "Filter by type: inventory or request")
	cmd.Flags().StringVar(&q.ContactName, "contact", "", "Filter by contact name or phone")
	cmd.Flags().StringVar(&q.Message, "text", "", "Filter by message text")
	cmd.Flags().StringVar(&q.UserID, "user", "", "Filter by user id, e.g. u7")
	return cmd
}

type messagesView []model.Message

func (m messagesView) Table() output.Data {
	data := output.Data{Headers: []string{"ID", "Contact", "Phone", "Type", "Source", "Sent", "Replied", "Status", "Message"}}
	for _, msg := range m {
		data.Rows = append(data.Rows, []string{
			strconv.Itoa(msg.ID),
			msg.ContactName,
			msg.ContactPhone,
			msg.Type,
			msg.Source,
			msg.SentAt,
			msg.Replied,
			msg.Status,
			preview(msg.Message, 40),
		})
	}
	return data
}

// preview shortens s to n runes
func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

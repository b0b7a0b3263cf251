package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"relove-chat/internal/pkg/chat/chatsync"
	"relove-chat/internal/pkg/chat/presentation/terminal"
)

func init() {
	conversationsCmd.Flags().StringP("search", "s", "", "only show conversations whose counterpart or product matches")
	rootCmd.AddCommand(conversationsCmd)
}

var conversationsCmd = &cobra.Command{
	Use:     "conversations",
	Aliases: []string{"ls"},
	Short:   "List your conversations",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer c.close()

		s := chatsync.New(c.api, nil, c.identity, chatsync.Options{Log: c.log})
		if err := s.LoadConversations(cmd.Context()); err != nil {
			return err
		}
		search, _ := cmd.Flags().GetString("search")
		s.SetSearch(search)

		terminal.PrintConversations(cmd.OutOrStdout(), s.VisibleConversations(), c.identity.Role, time.Now())
		return nil
	},
}

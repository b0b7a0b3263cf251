package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"relove-chat/internal/pkg/chat/chatsync"
	chat "relove-chat/internal/pkg/chat/domain"
	"relove-chat/internal/pkg/chat/presentation/terminal"
)

func init() {
	chatCmd.Flags().Bool("narrow", false, "show either the list or the open conversation, not both")
	rootCmd.AddCommand(chatCmd)
}

var chatCmd = &cobra.Command{
	Use:   "chat [conversation-id]",
	Short: "Open an interactive chat session",
	Long: `Starts an interactive session. Lines starting with / are commands:

  /open <id>                          open a conversation
  /back                               close it and show the list
  /list                               reload the conversation list
  /search <text>                      filter the list
  /start <seller> <product> <text>    contact a seller about a product
  /quit                               leave

Any other line is sent to the open conversation.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer c.close()
		if narrow, _ := cmd.Flags().GetBool("narrow"); narrow {
			c.cfg.Client.Narrow = true
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		s := chatsync.New(c.api, terminal.New(out), c.identity, chatsync.Options{
			Narrow: c.cfg.Client.Narrow,
			Log:    c.log,
		})

		pushDone := make(chan error, 1)
		go func() { pushDone <- s.Run(ctx, c.source()) }()

		r := &repl{sync: s, out: out, log: c.log}
		if err := s.LoadConversations(ctx); err == nil {
			r.printList()
		}
		if len(args) == 1 {
			r.exec(ctx, "/open "+args[0])
		}

		err = r.loop(ctx, cmd.InOrStdin())
		stop()
		if perr := <-pushDone; perr != nil {
			c.log.Warn("push subscription ended", zap.Error(perr))
		}
		return err
	},
}

type repl struct {
	sync *chatsync.Synchronizer
	out  io.Writer
	log  *zap.Logger
}

func (r *repl) loop(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-scanErr:
			return err
		case line := <-lines:
			if r.exec(ctx, line) {
				return nil
			}
		}
	}
}

// exec runs one input line and reports whether the session should end.
func (r *repl) exec(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, "/") {
		r.send(ctx, line)
		return false
	}

	name, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	switch name {
	case "/quit", "/exit":
		return true
	case "/open":
		id, err := strconv.ParseInt(rest, 10, 64)
		if err != nil {
			fmt.Fprintln(r.out, "usage: /open <conversation-id>")
			return false
		}
		if err := r.sync.ActivateConversationByID(ctx, id); errors.Is(err, chatsync.ErrUnknownConversation) {
			fmt.Fprintf(r.out, "no conversation #%d in the list\n", id)
		}
	case "/back":
		r.sync.ShowConversationList()
	case "/list":
		if err := r.sync.LoadConversations(ctx); err == nil {
			r.printList()
		}
	case "/search":
		r.sync.SetSearch(rest)
		r.printList()
	case "/start":
		r.start(ctx, rest)
	case "/help":
		fmt.Fprintln(r.out, "commands: /open <id>, /back, /list, /search <text>, /start <seller> <product> <text>, /quit")
	default:
		fmt.Fprintf(r.out, "unknown command %s, try /help\n", name)
	}
	return false
}

func (r *repl) send(ctx context.Context, text string) {
	r.sync.SetDraft(text)
	err := r.sync.SendMessage(ctx, text)
	switch {
	case errors.Is(err, chatsync.ErrNoActiveConversation):
		fmt.Fprintln(r.out, "open a conversation first: /open <id>")
	case errors.Is(err, chatsync.ErrSendInProgress):
		fmt.Fprintln(r.out, "still sending the previous message")
	}
}

func (r *repl) start(ctx context.Context, args string) {
	fields := strings.Fields(args)
	if len(fields) < 3 {
		fmt.Fprintln(r.out, "usage: /start <seller-id> <product-id> <message>")
		return
	}
	sellerID, err1 := strconv.ParseInt(fields[0], 10, 64)
	productID, err2 := strconv.ParseInt(fields[1], 10, 64)
	if err1 != nil || err2 != nil {
		fmt.Fprintln(r.out, "usage: /start <seller-id> <product-id> <message>")
		return
	}
	body := strings.Join(fields[2:], " ")

	conv, err := r.sync.StartConversation(ctx, sellerID, productID, body)
	switch {
	case errors.Is(err, chat.ErrBuyerOnly):
		fmt.Fprintln(r.out, "only buyers can start a conversation")
	case err == nil:
		fmt.Fprintf(r.out, "Conversation #%d started.\n", conv.ID)
	default:
		r.log.Debug("start conversation", zap.Error(err))
	}
}

func (r *repl) printList() {
	terminal.PrintConversations(r.out, r.sync.VisibleConversations(), r.sync.Identity().Role, time.Now())
}

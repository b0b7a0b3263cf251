package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"relove-chat/internal/config"
	"relove-chat/internal/infrastructure/auth"
	backendAdapter "relove-chat/internal/infrastructure/backend/adapter"
	pushAdapter "relove-chat/internal/infrastructure/push/adapter"
	push "relove-chat/internal/infrastructure/push/port"
	"relove-chat/internal/logging"
	chat "relove-chat/internal/pkg/chat/domain"
)

var rootCmd = &cobra.Command{
	Use:   "chatsync",
	Short: "Terminal client for buyer/seller conversations",
	Long: `chatsync lists your conversations and chats with the other side in real
time. The identity comes from CHAT_TOKEN; the backend from CHAT_BASE_URL.`,
	SilenceUsage: true,
}

// Execute runs the command tree. It is called once by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path")
	rootCmd.PersistentFlags().String("transport", "", "push transport: websocket or nats (overrides CHAT_TRANSPORT)")
}

// client bundles what every subcommand needs.
type client struct {
	cfg      *config.Config
	log      *zap.Logger
	identity chat.Identity
	api      *backendAdapter.Client
}

func newClient(cmd *cobra.Command) (*client, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if t, _ := cmd.Flags().GetString("transport"); t != "" {
		cfg.Client.Transport = t
	}
	if err := cfg.ValidateClient(); err != nil {
		return nil, err
	}

	// info lines would interleave with the conversation
	level := cfg.Log.Level
	if level == "" {
		level = "warn"
	}
	log, err := logging.New(level)
	if err != nil {
		return nil, err
	}

	identity, err := auth.TokenSubject(cfg.Client.Token)
	if err != nil {
		return nil, fmt.Errorf("CHAT_TOKEN: %w", err)
	}

	return &client{
		cfg:      cfg,
		log:      log,
		identity: identity,
		api:      backendAdapter.NewClient(cfg.Client.BaseURL, cfg.Client.Token, cfg.Client.RequestTimeout),
	}, nil
}

func (c *client) source() push.Source {
	if c.cfg.Client.Transport == config.TransportNATS {
		return pushAdapter.NewNatsSource(c.cfg.NATS.URL, c.log)
	}
	return pushAdapter.NewWebsocketSource(c.cfg.Client.PushURL, c.cfg.Client.Token, c.api, c.cfg.Client.ReconnectDelay, c.log)
}

func (c *client) close() {
	_ = c.log.Sync()
}

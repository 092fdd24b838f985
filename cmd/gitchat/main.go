package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ChamsBouzaiene/gitchat/internal/assistant"
	"github.com/ChamsBouzaiene/gitchat/internal/config"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "gitchat",
		Short: "Chat with your Git repository from the terminal",
		Long: `gitchat is a console assistant for a local Git repository. It drafts release
notes, commits, pushes and pulls, answers questions about the indexed codebase
and chats with function calling.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := run(ctx, configPath); err != nil {
				log.Printf("❌ %v", err)
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "Path to config.toml (default: <user config dir>/gitchat/config.toml)")
	return cmd
}

func run(ctx context.Context, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	env, err := prepareRuntimeEnv(ctx, cfg)
	if err != nil {
		return err
	}
	defer env.Close()

	console := assistant.NewConsole(os.Stdin, os.Stdout)
	a := assistant.New(env.assistantOptions(cfg, console))

	console.Println("Git assistant ready. Type 'help' for commands or 'exit' to quit.")
	return a.Run(ctx)
}

func loadConfig(path string) (*config.Config, error) {
	var manager *config.Manager
	if path != "" {
		manager = config.NewManagerWithPath(path)
	} else {
		var err error
		if manager, err = config.NewManager(); err != nil {
			return nil, err
		}
		if err := ensureConfigTemplate(manager); err != nil {
			log.Printf("⚠️  %v", err)
		}
	}

	cfg, err := manager.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", manager.GetConfigPath(), err)
	}
	return cfg, nil
}

// ensureConfigTemplate writes the default settings when no config file exists
// yet, so there is a file to fill in the endpoint and keys.
func ensureConfigTemplate(manager *config.Manager) error {
	if manager.Exists() {
		return nil
	}
	if err := manager.Save(config.Default()); err != nil {
		return fmt.Errorf("failed to create config template: %w", err)
	}
	log.Printf("📝 Created config template at %s", manager.GetConfigPath())
	return nil
}

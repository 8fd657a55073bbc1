// Package main is the entry point for the Zara voice assistant server.
// Zara listens for Tamil voice commands from a browser front-end, answers
// them through Gemini or an offline responder, and drives a presence orb
// over WebSocket.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/normanking/zara/internal/bus"
	"github.com/normanking/zara/internal/config"
	"github.com/normanking/zara/internal/convlog"
	"github.com/normanking/zara/internal/llm"
	"github.com/normanking/zara/internal/logging"
	"github.com/normanking/zara/internal/music"
	"github.com/normanking/zara/internal/orchestrator"
	"github.com/normanking/zara/internal/router"
	"github.com/normanking/zara/internal/server"
	"github.com/normanking/zara/internal/speech"
	"github.com/normanking/zara/internal/tasks"
)

var (
	version = "0.1.0"
	cfgPath string
	addr    string
	verbose bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "zara",
		Short: "Zara - Tamil voice assistant with a browser orb",
		Long: `Zara is a voice assistant that serves a glowing orb page in the
browser, listens for Tamil voice commands over WebSocket, and replies
through Gemini with an offline Tamil responder as fallback.

Start the server:  zara
Configuration:     zara config show`,
		RunE: runServer,
	}

	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file path (default ~/.zara/config.yaml)")
	rootCmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Zara v%s\n", version)
		},
	})

	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads configuration from the --config path or the default
// location, creating the file on first run.
func loadConfig() (*config.Config, error) {
	if cfgPath != "" {
		return config.LoadFromPath(cfgPath)
	}
	return config.Load()
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to prepare data directories: %w", err)
	}

	log, err := logging.New(&logging.Config{
		LogDir:  cfg.Logging.Dir,
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer log.Close()

	log.Info("main", "starting zara", map[string]interface{}{
		"version": version,
		"addr":    cfg.Server.Addr,
	})

	providerCfg := cfg.LLM.ToProviderConfig()
	if providerCfg.APIKey == "" {
		log.Warn("main", "no gemini api key configured, replies come from the offline responder", nil)
	}
	provider := llm.NewGeminiProvider(providerCfg)
	throttle := llm.NewThrottle(cfg.LLM.MinRequestInterval())
	generator := llm.NewClient(provider, throttle, nil, log)

	var conversation convlog.Sink = convlog.Nop{}
	if cfg.Assistant.ConversationLog != "" {
		conversation = convlog.NewFileSink(cfg.Assistant.ConversationLog)
	}

	var speaker speech.Speaker = speech.Nop{}
	if cfg.Assistant.SpeechCommand != "" {
		speaker = speech.NewCommandSpeaker(log, cfg.Assistant.SpeechCommand, cfg.Assistant.SpeechArgs...)
	}

	registry := tasks.NewRegistry(log, defaultTasks()...)

	b := bus.New()
	defer b.Close()

	orch := orchestrator.New(orchestrator.Config{
		Bus:            b,
		Router:         router.New(registry),
		Generator:      generator,
		Searcher:       music.NewBrowserSearcher(log),
		Speaker:        speaker,
		Conversation:   conversation,
		Log:            log,
		WelcomeMessage: cfg.Assistant.WelcomeMessage,
	})

	srv := server.New(cfg.Server.Addr, orch, b, log)
	if err := srv.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	orch.StartupGreeting()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh

	log.Info("main", "shutting down", map[string]interface{}{"signal": sig.String()})
	return srv.Stop()
}

// defaultTasks are the scripted tasks the assistant can run without the
// generation backend: opening common sites in the local browser.
func defaultTasks() []tasks.Task {
	return []tasks.Task{
		{
			Name:     "open-google",
			Keywords: []string{"open google", "google திற"},
			Run: func(string) error {
				return browser.OpenURL("https://www.google.com")
			},
		},
		{
			Name:     "open-youtube",
			Keywords: []string{"open youtube", "youtube திற"},
			Run: func(string) error {
				return browser.OpenURL("https://www.youtube.com")
			},
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			fmt.Println("Zara Configuration:")
			fmt.Println("───────────────────")
			fmt.Printf("Listen Address:   %s\n", cfg.Server.Addr)
			fmt.Printf("Provider:         %s\n", cfg.LLM.Provider)
			fmt.Printf("Model:            %s\n", cfg.LLM.Model)
			fmt.Printf("Throttle Window:  %s\n", cfg.LLM.MinRequestInterval())
			fmt.Printf("Conversation Log: %s\n", cfg.Assistant.ConversationLog)
			fmt.Printf("Log Level:        %s\n", cfg.Logging.Level)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			fmt.Println(cfg.GetConfigPath())
			return nil
		},
	})

	return cmd
}

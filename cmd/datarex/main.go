package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Desarso/datarex"
	"github.com/Desarso/datarex/vision"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

type cliOptions struct {
	addr        string
	databaseURL string
	provider    string
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	rootCmd := &cobra.Command{
		Use:           "datarex",
		Short:         "Multimodal chat gateway",
		Long:          "Chat gateway over GigaChat, YandexGPT and Gemini with persistent threads and image analysis.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.databaseURL, "database-url", "", "Thread store URL (overrides DATABASE_URL)")
	rootCmd.PersistentFlags().StringVar(&opts.provider, "provider", "", "Default provider (overrides DEFAULT_PROVIDER)")

	rootCmd.AddCommand(newServeCmd(opts))
	rootCmd.AddCommand(newAnalyzeCmd(opts))
	rootCmd.AddCommand(newProvidersCmd(opts))
	return rootCmd
}

func loadConfig(opts *cliOptions) (*datarex.Config, error) {
	cfg, err := datarex.LoadConfig()
	if err != nil {
		return nil, err
	}
	if opts.databaseURL != "" {
		cfg.WithDatabaseURL(opts.databaseURL)
	}
	if opts.provider != "" {
		cfg.WithDefaultProvider(opts.provider)
	}
	if opts.addr != "" {
		cfg.HTTPAddr = opts.addr
	}
	return cfg, nil
}

func newServeCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			gw, err := datarex.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer gw.Close()
			return gw.Serve(ctx)
		},
	}
	cmd.Flags().StringVar(&opts.addr, "addr", "", "Listen address (overrides HTTP_ADDR)")
	return cmd
}

func newAnalyzeCmd(opts *cliOptions) *cobra.Command {
	var (
		prompt      string
		temperature float64
		maxTokens   int
	)
	cmd := &cobra.Command{
		Use:   "analyze <image>",
		Short: "Analyze an image with the vision provider and print the result as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			gw, err := datarex.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer gw.Close()

			result, err := gw.Vision.AnalyzeImage(cmd.Context(), args[0], prompt, temperature, maxTokens)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
	cmd.Flags().StringVar(&prompt, "prompt", vision.DefaultPrompt, "Instruction for the model")
	cmd.Flags().Float64Var(&temperature, "temperature", vision.DefaultTemperature, "Sampling temperature")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", vision.DefaultMaxTokens, "Maximum tokens in the answer")
	return cmd
}

func newProvidersCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List configured providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			for _, name := range cfg.EnabledProviders() {
				marker := " "
				if name == cfg.DefaultProvider {
					marker = "*"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, name)
			}
			return nil
		},
	}
}

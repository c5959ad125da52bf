// syncctl drives the sync generation API from the command line.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ArsalanAyaz88/cashwave-lipsync-backend/internal/syncapi"
)

var (
	apiKey  string
	baseURL string
	debug   bool
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "syncctl",
		Short: "CLI for the sync lipsync generation API",
		Example: `  syncctl create --video-url https://example.com/v.mp4 --audio-url https://example.com/a.wav
  syncctl get 0190-abc
  syncctl wait 0190-abc --timeout 15m
  syncctl list --limit 20
  syncctl estimate-cost --video-url https://example.com/v.mp4 --audio-url https://example.com/a.wav`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "sync API key (defaults to SYNC_API_KEY)")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "override the API base URL")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(createCmd(), getCmd(), listCmd(), estimateCmd(), waitCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newClient() (*syncapi.Client, error) {
	key := strings.TrimSpace(apiKey)
	if key == "" {
		key = strings.TrimSpace(os.Getenv("SYNC_API_KEY"))
	}
	if key == "" {
		return nil, fmt.Errorf("api key is required: pass --api-key or set SYNC_API_KEY")
	}
	level := zerolog.WarnLevel
	if debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	opts := []syncapi.Option{syncapi.WithLogger(logger)}
	if strings.TrimSpace(baseURL) != "" {
		opts = append(opts, syncapi.WithBaseURL(baseURL))
	}
	return syncapi.NewClient(key, opts...)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func createCmd() *cobra.Command {
	var videoURL, audioURL, model, webhookURL string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a lipsync generation",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			gen, err := client.Generations.Create(cmd.Context(), syncapi.CreateGenerationRequest{
				Model: model,
				Input: []syncapi.Input{
					syncapi.VideoInput{URL: videoURL},
					syncapi.AudioInput{URL: audioURL},
				},
				WebhookURL: webhookURL,
			})
			if err != nil {
				return err
			}
			return printJSON(gen)
		},
	}
	cmd.Flags().StringVar(&videoURL, "video-url", "", "source video URL (required)")
	cmd.Flags().StringVar(&audioURL, "audio-url", "", "source audio URL (required)")
	cmd.Flags().StringVar(&model, "model", syncapi.DefaultModel, "generation model")
	cmd.Flags().StringVar(&webhookURL, "webhook-url", "", "callback URL for completion events")
	_ = cmd.MarkFlagRequired("video-url")
	_ = cmd.MarkFlagRequired("audio-url")
	return cmd
}

func getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <generation-id>",
		Short: "Fetch one generation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			gen, err := client.Generations.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(gen)
		},
	}
}

func listCmd() *cobra.Command {
	var cursor string
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List generations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			list, err := client.Generations.List(cmd.Context(), &syncapi.ListOptions{
				Cursor: cursor,
				Limit:  limit,
			})
			if err != nil {
				return err
			}
			return printJSON(list)
		},
	}
	cmd.Flags().StringVar(&cursor, "cursor", "", "pagination cursor")
	cmd.Flags().IntVar(&limit, "limit", 0, "page size")
	return cmd
}

func estimateCmd() *cobra.Command {
	var videoURL, audioURL, model string
	cmd := &cobra.Command{
		Use:   "estimate-cost",
		Short: "Estimate the cost of a generation without running it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			cost, err := client.Generations.EstimateCost(cmd.Context(), syncapi.CreateGenerationRequest{
				Model: model,
				Input: []syncapi.Input{
					syncapi.VideoInput{URL: videoURL},
					syncapi.AudioInput{URL: audioURL},
				},
			})
			if err != nil {
				return err
			}
			return printJSON(cost)
		},
	}
	cmd.Flags().StringVar(&videoURL, "video-url", "", "source video URL (required)")
	cmd.Flags().StringVar(&audioURL, "audio-url", "", "source audio URL (required)")
	cmd.Flags().StringVar(&model, "model", syncapi.DefaultModel, "generation model")
	_ = cmd.MarkFlagRequired("video-url")
	_ = cmd.MarkFlagRequired("audio-url")
	return cmd
}

func waitCmd() *cobra.Command {
	var interval, timeout time.Duration
	cmd := &cobra.Command{
		Use:   "wait <generation-id>",
		Short: "Poll a generation until it reaches a terminal status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			gen, err := client.Generations.Wait(ctx, args[0], &syncapi.WaitOptions{
				Interval: interval,
				Timeout:  timeout,
			})
			if gen != nil {
				_ = printJSON(gen)
			}
			return err
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 3*time.Second, "poll interval")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "total polling budget")
	return cmd
}

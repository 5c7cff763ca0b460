package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/brainzmonster/os/internal/llm"
)

var (
	queryPrompt       string
	querySystemPrompt string
	queryMaxTokens    int
	queryTemperature  float64
	queryStream       bool
	queryShowTokens   bool
	queryDryRun       bool
)

// queryCmd sends a single prompt to the model and prints the response.
var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Send a prompt to the model",
	Run: func(cmd *cobra.Command, args []string) {
		if strings.TrimSpace(queryPrompt) == "" {
			logrus.Fatalf("query: %v", llm.ErrEmptyPrompt)
		}

		prompt := llm.Prompt{
			Text:         queryPrompt,
			SystemPrompt: querySystemPrompt,
			MaxTokens:    queryMaxTokens,
			Temperature:  queryTemperature,
		}

		if queryDryRun {
			fmt.Println("dry run, nothing sent")
			fmt.Printf("prompt: %s\n", strings.TrimSpace(queryPrompt))
			if querySystemPrompt != "" {
				fmt.Printf("system prompt: %s\n", querySystemPrompt)
			}
			fmt.Printf("max tokens: %d\n", queryMaxTokens)
			fmt.Printf("temperature: %.2f\n", queryTemperature)
			return
		}

		cfg := loadConfig()
		svc := newLLM(newClient(cfg), cfg)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if queryStream {
			streamQuery(ctx, svc, prompt)
			return
		}

		res, err := svc.Query(ctx, prompt)
		if err != nil {
			logrus.Fatalf("query: %v", err)
		}

		fmt.Println(res.Response)
		if queryShowTokens && res.Meta != nil {
			fmt.Printf("tokens: input=%d output=%d total=%d\n",
				res.Meta.InputTokens, res.Meta.OutputTokens, res.Meta.TotalTokens)
			fmt.Printf("model: %s (%.2fs)\n", res.Meta.Model, res.Meta.InferenceTime)
		}
		if res.SessionID != "" {
			fmt.Printf("session: %s\n", res.SessionID)
		}
	},
}

// streamQuery prints chunks as they arrive. An interrupted stream is an
// error even after partial output, so the operator never mistakes a
// truncated answer for a complete one.
func streamQuery(ctx context.Context, svc *llm.Service, prompt llm.Prompt) {
	stream, err := svc.QueryStream(ctx, prompt)
	if err != nil {
		logrus.Fatalf("query: %v", err)
	}
	defer stream.Close()

	for {
		chunk, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			fmt.Println()
			logrus.Fatalf("stream interrupted: %v", err)
		}
		fmt.Print(chunk)
	}
	fmt.Println()

	if id := stream.SessionID(); id != "" {
		fmt.Printf("session: %s\n", id)
	}
}

func init() {
	queryCmd.Flags().StringVar(&queryPrompt, "prompt", "", "input prompt for the model")
	queryCmd.Flags().StringVar(&querySystemPrompt, "system-prompt", "", "optional system prompt to prepend")
	queryCmd.Flags().IntVar(&queryMaxTokens, "max-tokens", llm.DefaultMaxTokens, "maximum tokens to generate")
	queryCmd.Flags().Float64Var(&queryTemperature, "temperature", llm.DefaultTemperature, "sampling temperature")
	queryCmd.Flags().BoolVar(&queryStream, "stream", false, "stream the response as it is generated")
	queryCmd.Flags().BoolVar(&queryShowTokens, "show-tokens", false, "print token counts and model info")
	queryCmd.Flags().BoolVar(&queryDryRun, "dry-run", false, "validate and print the request without sending it")
	rootCmd.AddCommand(queryCmd)
}

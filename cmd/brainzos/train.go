package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/brainzmonster/os/internal/models"
	"github.com/brainzmonster/os/internal/trainer"
)

var (
	trainFile     string
	trainFormat   string
	trainDryRun   bool
	trainSafe     bool
	trainTags     []string
	trainSource   string
	trainMinWords int
	trainDedupe   bool
	trainRetries  int
	trainWatch    bool
	trainPreview  int
)

// trainCmd submits a training batch loaded from a local file.
var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Submit a training batch from a local file",
	Run: func(cmd *cobra.Command, args []string) {
		if trainFile == "" {
			logrus.Fatalf("train: --file is required")
		}

		texts, err := loadTexts(trainFile, trainFormat)
		if err != nil {
			logrus.Fatalf("load training data: %v", err)
		}
		if len(texts) == 0 {
			logrus.Fatalf("no samples found in %s", trainFile)
		}
		logrus.Infof("loaded %d sample(s) from %s", len(texts), trainFile)

		for i := 0; i < trainPreview && i < len(texts); i++ {
			fmt.Printf("sample %d: %s\n", i+1, truncate(texts[i], 96))
		}

		cfg := loadConfig()
		if cmd.Flags().Changed("min-words") {
			cfg.Training.MinWords = trainMinWords
		}
		if cmd.Flags().Changed("dedupe") {
			cfg.Training.Dedupe = trainDedupe
		}
		if cmd.Flags().Changed("retries") {
			cfg.Training.Retries = trainRetries
		}

		coord := newTrainer(newClient(cfg), cfg)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		req := trainer.Request{
			Texts:  texts,
			DryRun: trainDryRun,
			Tags:   trainTags,
			Source: trainSource,
		}

		var out trainer.Outcome
		if trainSafe {
			out, err = coord.SafeTrain(ctx, req)
		} else {
			out, err = coord.Train(ctx, req)
		}
		if err != nil {
			logrus.Fatalf("train: %v", err)
		}

		printOutcome(out)

		if trainWatch && out.Mode == models.ModeLive {
			watchSession(ctx, coord)
		}
	},
}

func printOutcome(out trainer.Outcome) {
	fmt.Printf("mode: %s\n", out.Mode)
	fmt.Printf("kept %d of %d sample(s) after cleanup\n", out.Stats.Kept, out.Stats.Input)
	if out.LiveErr != nil {
		fmt.Printf("live submit failed, fell back to dry run: %v\n", out.LiveErr)
	}

	res := out.Response
	if out.Mode == models.ModeSimulated {
		fmt.Printf("estimated %d token(s) for %d sample(s)\n", res.EstimatedTokens, res.TrainedSamples)
		return
	}
	fmt.Printf("accepted %d sample(s), status %s\n", res.TrainedSamples, res.Status)
	if id := res.SessionID(); id != "" {
		fmt.Printf("session: %s\n", id)
	}
}

// watchSession polls the tracked session until it reaches a terminal
// state or the command is interrupted.
func watchSession(ctx context.Context, coord *trainer.Coordinator) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			session, err := coord.PollStatus(ctx)
			if err != nil {
				logrus.Warnf("poll: %v", err)
				continue
			}
			fmt.Printf("session %s: %s (%.0f%%)\n", session.SessionID, session.Status, session.Progress*100)
			if session.Terminal() {
				return
			}
		}
	}
}

// loadTexts reads training samples from a file. Plain text files carry
// one sample per non-empty line; JSONL files carry a "text" field per
// line, or a prompt/completion pair flattened into one sample.
func loadTexts(path, format string) ([]string, error) {
	if format == "" {
		if strings.EqualFold(filepath.Ext(path), ".jsonl") {
			format = "jsonl"
		} else {
			format = "txt"
		}
	}
	switch format {
	case "txt":
		return loadTxt(path)
	case "jsonl":
		return loadJSONL(path)
	default:
		return nil, fmt.Errorf("unknown format %q (want txt or jsonl)", format)
	}
}

func loadTxt(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var texts []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			texts = append(texts, line)
		}
	}
	return texts, scanner.Err()
}

type jsonlSample struct {
	Text       string `json:"text"`
	Prompt     string `json:"prompt"`
	Completion string `json:"completion"`
}

func loadJSONL(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var texts []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var sample jsonlSample
		if err := json.Unmarshal([]byte(raw), &sample); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		switch {
		case strings.TrimSpace(sample.Text) != "":
			texts = append(texts, strings.TrimSpace(sample.Text))
		case sample.Prompt != "" && sample.Completion != "":
			// SFT-style pairs flatten into a single sample.
			texts = append(texts, fmt.Sprintf("<|user|>: %s\n<|assistant|>: %s",
				strings.TrimSpace(sample.Prompt), strings.TrimSpace(sample.Completion)))
		}
	}
	return texts, scanner.Err()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

func init() {
	trainCmd.Flags().StringVar(&trainFile, "file", "", "path to the training data file")
	trainCmd.Flags().StringVar(&trainFormat, "format", "", "file format, txt or jsonl (default: by extension)")
	trainCmd.Flags().BoolVar(&trainDryRun, "dry-run", false, "estimate only, do not train")
	trainCmd.Flags().BoolVar(&trainSafe, "safe", false, "fall back to a dry run when the live submit fails")
	trainCmd.Flags().StringSliceVar(&trainTags, "tags", nil, "optional metadata tags")
	trainCmd.Flags().StringVar(&trainSource, "source", "cli", "training data origin")
	trainCmd.Flags().IntVar(&trainMinWords, "min-words", 1, "drop samples shorter than N words")
	trainCmd.Flags().BoolVar(&trainDedupe, "dedupe", false, "remove duplicate samples before training")
	trainCmd.Flags().IntVar(&trainRetries, "retries", 1, "transient submit retries")
	trainCmd.Flags().BoolVar(&trainWatch, "watch", false, "poll session progress until it finishes")
	trainCmd.Flags().IntVar(&trainPreview, "preview", 3, "show the first N samples before submitting")
	rootCmd.AddCommand(trainCmd)
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"text2ppt/internal/attach"
	"text2ppt/internal/deck"
	"text2ppt/internal/generate"
)

var (
	genDoc       string
	genImages    []string
	genReference string
	genEmail     bool
	genOutDir    string
	genSaveDeck  string
)

var generateCmd = &cobra.Command{
	Use:   "generate [prompt...]",
	Short: "Generate a presentation from a prompt and attachments",
	Long: `Sends the prompt and any attachments to the generation service.

A slide deck reply is printed (and saved with --save-deck); a .pptx reply
is saved to the download directory. Signed-in users can pass --email to
have the presentation emailed instead.`,
	Example: `  text2ppt generate "Quarterly review for the sales team"
  text2ppt generate --doc report.pdf --image chart.png "Summarize this report"`,
	RunE: runGenerate,
}

// commandContext returns a context canceled by Ctrl+C or --timeout.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	if timeout <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	a, err := newApp(ctx, cfg, genOutDir)
	if err != nil {
		return err
	}
	defer a.Close()

	lc := a.lifecycle
	if err := stageAttachments(ctx, lc.Staging(), genDoc, genImages, genReference); err != nil {
		return err
	}
	lc.SetPrompt(strings.Join(args, " "))

	logger.Info("Generating presentation",
		zap.Int("prompt_len", len(lc.Prompt())),
		zap.Bool("email", genEmail))

	state, err := lc.Submit(ctx)
	if errors.Is(err, generate.ErrNothingToSubmit) {
		return fmt.Errorf("nothing to generate: give a prompt or attach a file")
	}
	if err != nil {
		return err
	}

	if _, ok := state.(generate.AwaitingDeliveryChoice); ok {
		state, err = lc.ChooseDelivery(ctx, genEmail)
		if err != nil {
			return err
		}
	} else if genEmail {
		fmt.Println("Email delivery needs a signed-in account; returning the presentation directly.")
	}

	return reportState(state)
}

// stageAttachments applies the staging rules to the command-line files.
// A rejected file aborts with its user-facing message.
func stageAttachments(ctx context.Context, set *attach.Set, doc string, images []string, reference string) error {
	if doc != "" {
		f, err := attach.Inspect(doc)
		if err != nil {
			return err
		}
		if err := set.StageDocument(f); err != nil {
			return rejection(err)
		}
	}

	if len(images) > 0 {
		files, err := attach.InspectAll(ctx, images)
		if err != nil {
			return err
		}
		if err := set.StageImages(files); err != nil {
			return rejection(err)
		}
	}

	set.SetReference(reference)
	return nil
}

func rejection(err error) error {
	var ve *attach.ValidationError
	if errors.As(err, &ve) {
		return fmt.Errorf("%s rejected: %s", ve.Name, ve.Message)
	}
	return err
}

func reportState(state generate.State) error {
	switch s := state.(type) {
	case generate.Succeeded:
		switch s.Outcome {
		case generate.OutcomeDeck:
			printDeck(s.Deck)
			if genSaveDeck != "" {
				if err := saveDeck(genSaveDeck, s.Deck); err != nil {
					return err
				}
				fmt.Printf("✓ Deck saved to %s\n", genSaveDeck)
			}
		case generate.OutcomeDownloaded:
			fmt.Printf("✓ %s\n", s.Message)
			fmt.Printf("  Saved to %s\n", s.Path)
		case generate.OutcomeEmailConfirmed:
			fmt.Printf("✓ %s\n", s.Message)
		}
		return nil
	case generate.Failed:
		logger.Debug("Generation failed", zap.Error(s.Err))
		return errors.New(s.Message)
	}
	return fmt.Errorf("unexpected state: %s", state)
}

// printDeck writes the deck as plain text.
func printDeck(d *deck.Deck) {
	fmt.Printf("%s (%d slides)\n", d.Title, d.Len())
	fmt.Println(strings.Repeat("=", 60))
	for i, s := range d.Slides {
		fmt.Printf("\n[%d/%d] %s\n", i+1, d.Len(), s.Title)
		for _, p := range s.Paragraphs() {
			if strings.TrimSpace(p) == "" {
				continue
			}
			fmt.Printf("  %s\n", p)
		}
		if s.BackgroundImage != "" {
			fmt.Printf("  (background: %s)\n", s.BackgroundImage)
		}
	}
}

func saveDeck(path string, d *deck.Deck) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode deck: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write deck: %w", err)
	}
	return nil
}

// loadDeck reads a deck written by --save-deck.
func loadDeck(path string) (*deck.Deck, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read deck: %w", err)
	}
	var d deck.Deck
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to parse deck %s: %w", path, err)
	}
	if d.Len() == 0 {
		return nil, fmt.Errorf("deck %s has no slides", path)
	}
	return &d, nil
}

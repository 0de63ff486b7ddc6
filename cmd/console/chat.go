package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"vehicle-bot/internal/config"
	"vehicle-bot/internal/domain"
	"vehicle-bot/internal/integrations/lookup"
	"vehicle-bot/internal/state"
	"vehicle-bot/internal/turnlog"
	"vehicle-bot/internal/usecase"
)

const sweepInterval = time.Minute

var (
	conversationID string
	participantID  string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the bot on stdin",
	Long: `Read one message per line from stdin and print the bot's reply.

Console commands:
  /as <participant>  - continue as another participant of the conversation
  /quit              - exit`,
	RunE: runChatCmd,
}

func init() {
	chatCmd.Flags().StringVar(&conversationID, "conversation", "console", "Conversation id")
	chatCmd.Flags().StringVar(&participantID, "participant", "", "Participant id (default: the conversation id)")
}

type messageRouter interface {
	Handle(ctx context.Context, in domain.InboundMessage) (usecase.Reply, error)
}

func runChatCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.State.Backend != config.BackendMemory {
		slog.Warn("console always keeps state in memory", "configured_backend", cfg.State.Backend)
	}

	lookupClient, err := lookup.NewClientFromConfig(cfg.Lookup)
	if err != nil {
		return err
	}
	recorder, err := turnlog.NewFileRecorder(cfg.TurnLog.Path)
	if err != nil {
		return err
	}
	store := state.NewMemoryStore(state.WithMaxEntries(cfg.State.MaxEntries), state.WithIdleTTL(cfg.State.IdleTTL))
	router, err := usecase.NewRouter(lookupClient, store, recorder)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(cmd.Context())
	done := make(chan struct{})
	g.Go(func() error {
		defer close(done)
		return runChat(ctx, os.Stdin, cmd.OutOrStdout(), router, conversationID, participantID)
	})
	if cfg.State.IdleTTL > 0 {
		g.Go(func() error {
			sweepLoop(done, store, sweepInterval)
			return nil
		})
	}
	return g.Wait()
}

// runChat feeds every non-empty input line to router as a message from the
// current participant and writes the reply followed by a blank line.
func runChat(ctx context.Context, in io.Reader, out io.Writer, router messageRouter, conversation, participant string) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit" || line == "/exit":
			return nil
		case strings.HasPrefix(line, "/as "):
			participant = strings.TrimSpace(strings.TrimPrefix(line, "/as "))
			fmt.Fprintf(out, "now chatting as %s\n\n", domain.NewParticipantKey(conversation, participant))
			continue
		}

		reply, err := router.Handle(ctx, domain.InboundMessage{
			ConversationID: conversation,
			ParticipantID:  participant,
			Text:           line,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s\n\n", reply.Text)
	}
	return scanner.Err()
}

func sweepLoop(done <-chan struct{}, store *state.MemoryStore, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if n := store.Sweep(); n > 0 {
				slog.Debug("expired pending prompts", "count", n)
			}
		}
	}
}

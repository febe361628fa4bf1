package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kirillkom/matercare-assistant/internal/bootstrap"
	"github.com/kirillkom/matercare-assistant/internal/config"
	"github.com/kirillkom/matercare-assistant/internal/core/domain"
	"github.com/kirillkom/matercare-assistant/internal/core/ports"
	"github.com/kirillkom/matercare-assistant/internal/infrastructure/queue/nats"
	"github.com/kirillkom/matercare-assistant/internal/observability/logging"
)

type askOptions struct {
	userID  string
	verbose bool
	viaNATS bool
	timeout time.Duration
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := askOptions{}
	cmd := &cobra.Command{
		Use:   "ask [message]",
		Short: "Send one message through the assistant and print the reply",
		Long: `Runs the message through intent classification and the matching branch
(chitchat, grounded retrieval or crisis escalation) using the configured
backends, or through a running worker with --nats.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.TrimSpace(strings.Join(args, " "))
			if text == "" {
				return fmt.Errorf("message is empty")
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			level := cfg.LogLevel
			if !opts.verbose {
				level = "error"
			}
			slog.SetDefault(logging.New(cmd.ErrOrStderr(), "ask", level))

			ctx := cmd.Context()
			if opts.timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, opts.timeout)
				defer cancel()
			}
			if opts.viaNATS {
				return askViaNATS(ctx, cmd.OutOrStdout(), cfg, text, opts)
			}

			app, err := bootstrap.New(ctx, cfg, nil)
			if err != nil {
				return err
			}
			return askLocal(ctx, cmd.OutOrStdout(), app.Answerer, text, opts)
		},
	}
	cmd.Flags().StringVar(&opts.userID, "user-id", "", "caller identity attached to the query")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "print intent, outcome and grounding snippets")
	cmd.Flags().BoolVar(&opts.viaNATS, "nats", false, "send the message to a running worker over NATS")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 90*time.Second, "overall deadline")
	return cmd
}

func askLocal(ctx context.Context, out io.Writer, answerer ports.Answerer, text string, opts askOptions) error {
	resp, err := answerer.Answer(ctx, domain.Query{Text: text, CallerID: opts.userID})
	if err != nil {
		return err
	}
	printResponse(out, resp, opts.verbose)
	return nil
}

func askViaNATS(ctx context.Context, out io.Writer, cfg config.Config, text string, opts askOptions) error {
	queue, err := nats.New(cfg.NATSURL, cfg.NATSAnswerSubject, nats.Options{})
	if err != nil {
		return err
	}
	defer queue.Close()

	reply, err := queue.Ask(ctx, nats.AnswerRequest{Text: text, UserID: opts.userID})
	if err != nil {
		return err
	}
	if reply.Error != "" {
		return fmt.Errorf("worker: %s", reply.Error)
	}
	if opts.verbose {
		fmt.Fprintf(out, "intent: %s\noutcome: %s\nmessage_id: %s\n\n", reply.Intent, reply.Outcome, reply.MessageID)
	}
	fmt.Fprintln(out, reply.ReplyText)
	return nil
}

func printResponse(out io.Writer, resp *domain.Response, verbose bool) {
	if verbose {
		fmt.Fprintf(out, "intent: %s (%s)\n", resp.Intent, resp.IntentSource)
		fmt.Fprintf(out, "outcome: %s\n", resp.Outcome)
		if resp.Outcome == domain.OutcomeGrounded || resp.Outcome == domain.OutcomeNoMatches {
			fmt.Fprintf(out, "retrieved: %d\n", resp.RetrievedCount)
		}
		for i, src := range resp.Sources {
			fmt.Fprintf(out, "[%d] %s | %s\n    %s\n", i+1, orNA(src.Source), orNA(src.URL), src.Snippet)
		}
		if resp.GenerationFallback {
			fmt.Fprintln(out, "note: generation failed, fallback text used")
		}
		fmt.Fprintln(out)
	}
	fmt.Fprintln(out, resp.Text)
	for _, r := range resp.Resources {
		fmt.Fprintf(out, "- %s: %s\n", r.Name, firstNonEmpty(r.Phone, r.Text, r.Website))
	}
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/recruiter-agent/internal/delivery"
	"github.com/jonathan/recruiter-agent/internal/observability"
	"github.com/jonathan/recruiter-agent/internal/pipeline"
	"github.com/jonathan/recruiter-agent/internal/run"
	"github.com/jonathan/recruiter-agent/internal/types"
)

type runFlags struct {
	name           string
	email          string
	website        string
	maxItems       int
	alternateOnly  bool
	deliveryTarget string
	senderName     string
	senderEmail    string
	subject        string
	timezone       string
	output         string
	deliver        bool
	verbose        bool
}

func (f *runFlags) request() types.ProcessRequest {
	return types.ProcessRequest{
		RecruiterName:          f.name,
		RecruiterEmail:         f.email,
		RecruiterWebsite:       f.website,
		MaxItems:               f.maxItems,
		DeliveryTarget:         f.deliveryTarget,
		UseAlternateSourceOnly: f.alternateOnly,
		SenderName:             f.senderName,
		SenderEmail:            f.senderEmail,
		EmailSubject:           f.subject,
		Timezone:               f.timezone,
	}
}

func newRunCmd() *cobra.Command {
	f := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline once for a recruiter",
		Long: `Runs the full pipeline for one recruiter: ICP extraction -> search terms -> job sourcing
(LinkedIn, falling back to web discovery) -> validation -> prioritization -> enrichment -> message.

The result document is printed as a summary and can be saved as JSON with --output.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOnce(cmd, f)
		},
	}

	cmd.Flags().StringVarP(&f.name, "name", "n", "", "Recruiter name")
	cmd.Flags().StringVarP(&f.email, "email", "e", "", "Recruiter email")
	cmd.Flags().StringVarP(&f.website, "website", "w", "", "Recruiter website")
	cmd.Flags().IntVar(&f.maxItems, "max-items", 0, "Maximum jobs to source (0 uses pipeline.default_max_items)")
	cmd.Flags().BoolVar(&f.alternateOnly, "alternate-only", false, "Skip LinkedIn and source jobs from web discovery only")
	cmd.Flags().StringVar(&f.deliveryTarget, "delivery-target", "", "Webhook URL for this run (implies --deliver)")
	cmd.Flags().StringVar(&f.senderName, "sender-name", "", "Sender name for the outreach message")
	cmd.Flags().StringVar(&f.senderEmail, "sender-email", "", "Sender email for the outreach message")
	cmd.Flags().StringVar(&f.subject, "subject", "", "Outreach email subject")
	cmd.Flags().StringVar(&f.timezone, "timezone", "", "Recruiter timezone for the message")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Write the result document as JSON to this file")
	cmd.Flags().BoolVar(&f.deliver, "deliver", false, "Deliver the result through the configured sinks")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Print stage progress")
	return cmd
}

func runOnce(cmd *cobra.Command, f *runFlags) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	req, err := a.intake.Validate(f.request())
	if err != nil {
		return err
	}

	if f.verbose {
		ctx = pipeline.ContextWithObserver(ctx, pipeline.NewProgress(func(ev pipeline.ProgressEvent) {
			fmt.Fprintf(cmd.ErrOrStderr(), "[%s] %s\n", ev.Step, ev.Message) //nolint:errcheck
		}))
	}

	r := run.New(req, run.WithDeadline(cfg.Pipeline.Deadline))
	ctx = observability.ContextWithFields(ctx, observability.Fields{observability.FieldRunID: r.ID()})
	doc := a.pipeline.Execute(ctx, r)

	observability.NewPrinter(cmd.OutOrStdout()).PrintDocument(doc)

	if f.output != "" {
		if err := writeDocument(f.output, doc); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Result written to %s\n", f.output) //nolint:errcheck
	}

	if f.deliver || f.deliveryTarget != "" {
		switch err := a.sink.Deliver(context.WithoutCancel(ctx), doc); {
		case err == nil:
			fmt.Fprintln(cmd.OutOrStdout(), "Result delivered") //nolint:errcheck
		case errors.Is(err, delivery.ErrSkipped):
			fmt.Fprintln(cmd.OutOrStdout(), "No delivery target configured") //nolint:errcheck
		default:
			return fmt.Errorf("delivery failed: %w", err)
		}
	}

	if doc.Error != nil {
		return fmt.Errorf("run %s failed: %s", doc.RunID, doc.Error.Reason)
	}
	return nil
}

func writeDocument(path string, doc *types.Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	return nil
}

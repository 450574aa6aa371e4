package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/dre-dev/dre/internal/config"
	"github.com/dre-dev/dre/internal/dre"
	"github.com/dre-dev/dre/internal/log"
	"github.com/dre-dev/dre/internal/publish"
	"github.com/dre-dev/dre/internal/render"
	"github.com/dre-dev/dre/internal/runlog"
)

type reportOptions struct {
	periodFlags
	format  string
	style   string
	publish bool
}

func newReportCommand() *cobra.Command {
	var opts reportOptions

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Compute the DRE of a company over the months ending at --month/--year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), opts)
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVar(&opts.format, "format", render.FormatTerminal, "output format: terminal, markdown or json")
	cmd.Flags().StringVar(&opts.style, "style", "", "glamour style for terminal output (default: detected)")
	cmd.Flags().BoolVar(&opts.publish, "publish", false, "publish the report to the configured AMQP exchange")

	return cmd
}

func runReport(ctx context.Context, stdout, stderr io.Writer, opts reportOptions) error {
	p, err := openProject(ctx, opts.repo, stderr)
	if err != nil {
		return err
	}
	defer p.Close()

	if opts.publish && p.cfg.Publish.AMQPURL == "" {
		return fmt.Errorf("--publish requires publish.amqp_url or %s", config.EnvAMQPURL)
	}

	company, month, year := opts.resolve(p.cfg, time.Now())
	engine := dre.NewEngine(p.store, dre.Options{
		Window:      p.cfg.Report.Window,
		Concurrency: p.cfg.Report.Concurrency,
		Logger:      p.logger,
	})

	start := time.Now()
	report, err := engine.ComputeReport(ctx, company, month, year)
	if err != nil {
		return fmt.Errorf("could not compute report: %w", err)
	}
	elapsed := time.Since(start)

	if err := render.Write(stdout, opts.format, report, render.Options{
		Currency:    p.cfg.Report.Currency,
		CompanyName: p.cfg.Company.Name,
		Style:       opts.style,
	}); err != nil {
		return err
	}

	if opts.publish {
		pub, err := publish.Dial(p.cfg.Publish.AMQPURL, p.cfg.Publish.Exchange, p.cfg.Publish.RoutingKey, p.logger)
		if err != nil {
			return err
		}
		defer pub.Close()
		if err := pub.PublishReport(ctx, report); err != nil {
			return err
		}
	}

	entry := runlog.Entry{
		Timestamp: start,
		CompanyID: company,
		Period:    report.Period.Key(),
		Accounts:  report.Count(),
		Warnings:  len(report.Warnings),
		Duration:  elapsed,
	}
	if err := runlog.Append(p.root, entry); err != nil {
		p.logger.Warn("failed to write run log", log.FieldError, err)
	}
	return nil
}

func newValueCommand() *cobra.Command {
	var opts periodFlags

	cmd := &cobra.Command{
		Use:   "value <account-id>",
		Short: "Compute the value of one account in one month",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValue(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), args[0], opts)
		},
	}
	opts.register(cmd)

	return cmd
}

func runValue(ctx context.Context, stdout, stderr io.Writer, accountID string, opts periodFlags) error {
	p, err := openProject(ctx, opts.repo, stderr)
	if err != nil {
		return err
	}
	defer p.Close()

	company, month, year := opts.resolve(p.cfg, time.Now())
	if company == "" {
		return fmt.Errorf("could not compute value: %w", dre.ErrNoCompany)
	}
	engine := dre.NewEngine(p.store, dre.Options{Concurrency: p.cfg.Report.Concurrency, Logger: p.logger})

	c := dre.NewContext(company, month, year)
	v, warnings, err := engine.ResolveAccountValue(ctx, accountID, c)
	if err != nil {
		return fmt.Errorf("could not compute value: %w", err)
	}

	fmt.Fprintf(stdout, "%s %02d/%04d %s\n", accountID, month, year, render.Money(v, p.cfg.Report.Currency))
	for _, w := range warnings {
		fmt.Fprintf(stderr, "warning: %s\n", w)
	}
	return nil
}

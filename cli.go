package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/Nexora-Open-Source/tweet-filter/middleware"
	"github.com/Nexora-Open-Source/tweet-filter/monitor"
	"github.com/Nexora-Open-Source/tweet-filter/types"
	"github.com/Nexora-Open-Source/tweet-filter/utils"
	"github.com/spf13/cobra"
)

var (
	flagQuestion string
	flagList     string
	flagUsers    string
	flagJSON     bool
)

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Run one filter job in the foreground and print its verdicts",
	Example: `  tweet-filter filter --question "Is this about Go?" --list golang
  tweet-filter filter --question "Announces a release?" --users "rob_pike, @golang"`,
	RunE: doFilter,
}

func init() {
	filterCmd.Flags().StringVarP(&flagQuestion, "question", "q", "", "question every tweet is evaluated against")
	filterCmd.Flags().StringVarP(&flagList, "list", "l", "", "named list of accounts to filter")
	filterCmd.Flags().StringVarP(&flagUsers, "users", "u", "", "accounts to filter, separated by commas or newlines")
	filterCmd.Flags().BoolVar(&flagJSON, "json", false, "print the final snapshot as JSON")
	_ = filterCmd.MarkFlagRequired("question")
	filterCmd.MarkFlagsMutuallyExclusive("list", "users")
}

func doFilter(cmd *cobra.Command, _ []string) error {
	cfg := appConfig
	logger := middleware.Logger
	// stdout carries the verdicts
	logger.SetOutput(cmd.ErrOrStderr())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := cfg.NewUpstreamClient(logger)
	if err != nil {
		return fmt.Errorf("failed to create upstream client: %w", err)
	}
	transport, err := cfg.NewTransport(client, logger)
	if err != nil {
		return fmt.Errorf("failed to create %s transport: %w", cfg.Transport, err)
	}
	mon := monitor.New(transport, logger)
	defer mon.Close()

	req := types.FilterRequest{
		Question: flagQuestion,
		List:     flagList,
		Users:    utils.ParseIdentifiers(flagUsers),
	}

	progress := &progressPrinter{out: cmd.ErrOrStderr()}
	model, runErr := mon.Run(ctx, req, progress.update)
	if model == nil {
		return runErr
	}

	snap := model.Snapshot()
	if flagJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(snap); err != nil {
			return fmt.Errorf("failed to encode snapshot: %w", err)
		}
		return runErr
	}

	printResults(cmd.OutOrStdout(), snap)
	return runErr
}

// progressPrinter writes one line per job or progress change
type progressPrinter struct {
	out      io.Writer
	jobID    string
	progress types.Progress
	warning  string
}

func (p *progressPrinter) update(snap monitor.Snapshot) {
	if snap.Job.ID != "" && snap.Job.ID != p.jobID {
		p.jobID = snap.Job.ID
		fmt.Fprintf(p.out, "job %s submitted over %s\n", p.jobID, snap.Transport)
	}
	if snap.Job.Progress != nil && *snap.Job.Progress != p.progress {
		p.progress = *snap.Job.Progress
		line := fmt.Sprintf("processed %d/%d", p.progress.Processed, p.progress.Total)
		if p.progress.Message != "" {
			line += ": " + p.progress.Message
		}
		fmt.Fprintln(p.out, line)
	}
	if snap.Warning != "" && snap.Warning != p.warning {
		p.warning = snap.Warning
		fmt.Fprintf(p.out, "warning: %s\n", p.warning)
	}
}

func printResults(w io.Writer, snap monitor.Snapshot) {
	set := snap.Final
	if set == nil {
		set = snap.Partial
		if set == nil {
			fmt.Fprintf(w, "status: %s, no results\n", snap.Job.Status)
			return
		}
		fmt.Fprintf(w, "status: %s, partial results\n", snap.Job.Status)
	}

	for _, item := range set.Items {
		verdict := "FAIL"
		if item.Pass {
			verdict = "PASS"
		}
		fmt.Fprintf(w, "[%s] @%s: %s\n", verdict, item.Tweet.Username, item.Tweet.Text)
		if item.Reasoning != "" {
			fmt.Fprintf(w, "       %s\n", item.Reasoning)
		}
	}
	fmt.Fprintf(w, "%d of %d tweets passed\n", set.Passed(), len(set.Items))

	if set.Summary != nil && *set.Summary != "" {
		fmt.Fprintf(w, "\nSummary:\n%s\n", *set.Summary)
	}
}

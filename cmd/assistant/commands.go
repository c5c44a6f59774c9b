package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/xaenox/bwe-assistant/internal/api"
	"github.com/xaenox/bwe-assistant/internal/bot"
	"github.com/xaenox/bwe-assistant/internal/classifier"
	"github.com/xaenox/bwe-assistant/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web interface and, when a token is configured, the Telegram bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := c.bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			e, err := api.NewServer(api.Dependencies{
				Service:     a.service,
				Logger:      c.logger,
				Development: c.cfg.Log.Development,
				BodyLimit:   c.cfg.Server.BodyLimit,
			})
			if err != nil {
				return fmt.Errorf("failed to build HTTP server: %w", err)
			}

			var b *bot.Bot
			if c.cfg.Telegram.Token != "" {
				if b, err = bot.New(c.cfg.Telegram.Token, a.service, c.logger); err != nil {
					return err
				}
			} else {
				c.logger.Info("Telegram token not set, bot disabled")
			}

			addr := fmt.Sprintf(":%d", c.cfg.Server.Port)
			g, gctx := errgroup.WithContext(ctx)

			g.Go(func() error {
				c.logger.Info("HTTP server listening", zap.String("addr", addr))
				if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("http server: %w", err)
				}
				return nil
			})

			g.Go(func() error {
				<-gctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				c.logger.Info("Shutting down HTTP server")
				return e.Shutdown(shutdownCtx)
			})

			if b != nil {
				g.Go(func() error {
					if err := b.Start(gctx); err != nil {
						return fmt.Errorf("telegram bot: %w", err)
					}
					return nil
				})
			}

			return g.Wait()
		},
	}
}

func newReconcileCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Verify the category store against the remote files and repair it",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.service.Reconciler().Run(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ghosts removed:  %d\n", report.GhostsRemoved)
			fmt.Fprintf(out, "backfilled:      %d\n", report.Backfilled)
			fmt.Fprintf(out, "invalid reset:   %d\n", report.InvalidReset)
			fmt.Fprintf(out, "recategorized:   %d\n", report.Recategorized)
			if len(report.MissingCategories) > 0 {
				fmt.Fprintf(out, "missing defaults: %s\n", strings.Join(report.MissingCategories, ", "))
			}
			if report.Failures > 0 {
				return fmt.Errorf("%d reconciliation steps failed", report.Failures)
			}
			return nil
		},
	}
}

func newClassifyCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "classify <filename>...",
		Short: "Show the category the keyword rules assign to each filename",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clf := classifier.NewKeywordClassifier()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, name := range args {
				fmt.Fprintf(w, "%s\t%s\n", name, clf.Classify(cmd.Context(), name, ""))
			}
			return w.Flush()
		},
	}
}

func newGapsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "gaps [category]",
		Short: "List missing months for a category, or for every report category",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			if len(args) == 1 {
				gaps, err := a.service.Gaps(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printGaps(out, args[0], gaps)
				return nil
			}

			view, err := a.service.View(cmd.Context(), "")
			if err != nil {
				return err
			}
			if view.Error != "" {
				fmt.Fprintln(out, view.Error)
			}
			for _, bucket := range view.Categories {
				if models.IsReportCategory(bucket.Name) {
					printGaps(out, bucket.Name, bucket.Gaps)
				}
			}
			return nil
		},
	}
}

func printGaps(out io.Writer, category string, gaps []string) {
	if len(gaps) == 0 {
		fmt.Fprintf(out, "%s: no missing months\n", category)
		return
	}
	fmt.Fprintf(out, "%s: %s\n", category, strings.Join(gaps, ", "))
}

func newDuplicatesCmd(c *cli) *cobra.Command {
	var remove bool

	cmd := &cobra.Command{
		Use:   "duplicates",
		Short: "List remote files sharing a filename",
		Long: `Lists remote files that share a filename. With --delete, the newest file of
every group is kept and the others are deleted from the knowledge base.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			groups, err := a.service.Duplicates(cmd.Context())
			if err != nil {
				return err
			}
			if len(groups) == 0 {
				fmt.Fprintln(out, "No duplicates found.")
				return nil
			}

			for _, g := range groups {
				fmt.Fprintf(out, "%s (%d copies)\n", g.Filename, len(g.Files))
				for i, f := range g.Files {
					marker := "delete"
					if i == 0 {
						marker = "keep"
					}
					fmt.Fprintf(out, "  %-6s %s  %s\n", marker, f.ID, f.CreatedAt)
				}
			}

			if !remove {
				return nil
			}
			removed, err := a.service.RemoveDuplicates(cmd.Context())
			fmt.Fprintf(out, "Deleted %d files.\n", len(removed))
			return err
		},
	}

	cmd.Flags().BoolVar(&remove, "delete", false, "delete all but the newest copy")
	return cmd
}

type rulesDocument struct {
	Priority     []classifier.Rule `yaml:"priority"`
	SpecialCases []classifier.Rule `yaml:"special_cases"`
}

func newRulesCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "Print the keyword rules in evaluation order as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			priority, special := classifier.NewKeywordClassifier().Rules()

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(rulesDocument{Priority: priority, SpecialCases: special}); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}

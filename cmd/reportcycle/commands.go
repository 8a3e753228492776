package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/neomorfeo/reportcycle/internal/app"
	"github.com/neomorfeo/reportcycle/internal/config"
	"github.com/neomorfeo/reportcycle/internal/domain"
)

func (c *cli) manualCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "manual <tenant> <worker-ids> <start> <end>",
		Short: "Create revisioned statements for selected workers",
		Long: `Create statements for a comma-separated list of worker ids of one tenant,
covering start through end (YYYY-MM-DD, inclusive). Existing statements are
never overwritten; each run adds a new revision. Dispatch state is untouched.`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStack(cmd.Context(), nil, true, func(ctx context.Context, s *stack) error {
				svc := s.service()

				start, err := svc.ParseDate("start", args[2])
				if err != nil {
					return err
				}
				end, err := svc.ParseDate("end", args[3])
				if err != nil {
					return err
				}

				summary, err := svc.RunOnDemand(ctx, domain.OnDemandRequest{
					TenantSlug: args[0],
					WorkerIDs:  splitIDs(args[1]),
					Start:      start,
					End:        end,
				})
				s.metrics.Record(ctx, summary)
				printSummary(c.stdout, summary)
				return err
			})
		},
	}
}

func (c *cli) scheduledCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "scheduled",
		Short: "Run the cycle for every tenant due today",
		Long: `Run the bulk cycle: every tenant whose dispatch day matches the date gets a
statement per worker for the days since its previous dispatch. Large tenant
sets can be split across processes with --chunk-size and --chunk-index.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := config.Flags{
				"chunk.size":  cmd.Flags().Lookup("chunk-size"),
				"chunk.index": cmd.Flags().Lookup("chunk-index"),
			}
			return c.withStack(cmd.Context(), flags, true, func(ctx context.Context, s *stack) error {
				svc := s.service()
				req := app.ScheduledRequest{
					ChunkSize:  s.cfg.Chunk.Size,
					ChunkIndex: s.cfg.Chunk.Index,
				}
				if date != "" {
					today, err := svc.ParseDate("date", date)
					if err != nil {
						return err
					}
					req.Today = today
				}

				summary, err := svc.RunScheduled(ctx, req)
				s.metrics.Record(ctx, summary)
				printSummary(c.stdout, summary)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "cycle date as YYYY-MM-DD (default today)")
	cmd.Flags().Int("chunk-size", 0, "tenants per chunk, 0 for all (env CHUNK_SIZE)")
	cmd.Flags().Int("chunk-index", 0, "zero-based chunk to process (env CHUNK_INDEX)")
	return cmd
}

func (c *cli) remindCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Mail the contacts of tenants due today",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withStack(cmd.Context(), nil, false, func(ctx context.Context, s *stack) error {
				svc := s.service()
				today := svc.Today()
				if date != "" {
					t, err := svc.ParseDate("date", date)
					if err != nil {
						return err
					}
					today = t
				}

				result, err := svc.SendReminders(ctx, today)
				if err != nil {
					return err
				}
				printReminders(c.stdout, result)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "reminder date as YYYY-MM-DD (default today)")
	return cmd
}

// withStack loads the configuration, wires the adapters and runs fn. The
// stack is closed when fn returns.
func (c *cli) withStack(ctx context.Context, flags config.Flags, pipeline bool, fn func(context.Context, *stack) error) error {
	cfg, logger, err := c.load(flags)
	if err != nil {
		return err
	}

	s, err := wire(ctx, cfg, logger, wireOptions{pipeline: pipeline})
	if err != nil {
		return err
	}
	defer func() {
		if err := s.close(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("shutdown", "error", err)
		}
	}()

	return fn(ctx, s)
}

// splitIDs parses a comma-separated id list, dropping blanks.
func splitIDs(csv string) []string {
	var ids []string
	for _, id := range strings.Split(csv, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

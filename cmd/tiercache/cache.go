package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newCacheCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage cached entries",
	}
	cmd.AddCommand(
		newCacheStatsCmd(g),
		newCacheGetCmd(g),
		newCacheSetCmd(g),
		newCacheDeleteCmd(g),
		newCachePruneCmd(g),
		newCacheClearCmd(g),
	)
	return cmd
}

func newCacheStatsCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show tier sizes and counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := openEngine(ctx, g)
			if err != nil {
				return err
			}
			defer func() { _ = e.Close() }()

			s, err := e.Stats(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIER\tENTRIES\tSIZE")
			fmt.Fprintf(w, "volatile\t%d\t-\n", s.VolatileEntries)
			fmt.Fprintf(w, "fast\t%d\t%s / %s\n", s.FastEntries,
				humanize.IBytes(uint64(s.FastBytes)), humanize.IBytes(uint64(s.FastQuota)))
			if s.DurableEnabled {
				fmt.Fprintf(w, "durable\t%d\t-\n", s.DurableEntries)
			} else {
				fmt.Fprintln(w, "durable\tunavailable\t-")
			}
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Fprintf(out, "\nReadings:  %s\nArtifacts: %s\n",
				humanize.Comma(s.Readings), humanize.Comma(s.Artifacts))
			return nil
		},
	}
}

func newCacheGetCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print the live value stored under a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := openEngine(ctx, g)
			if err != nil {
				return err
			}
			defer func() { _ = e.Close() }()

			hit, ok := e.Lookup(ctx, args[0])
			if !ok {
				return fmt.Errorf("key %q not found", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(hit.Entry.Value))
			fmt.Fprintf(cmd.ErrOrStderr(), "tier=%s expires %s\n",
				hit.Source, humanize.Time(hit.Entry.ExpiresAt))
			return nil
		},
	}
}

func newCacheSetCmd(g *globalFlags) *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a value in every tier",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := openEngine(ctx, g)
			if err != nil {
				return err
			}
			defer func() { _ = e.Close() }()

			report, err := e.Set(ctx, args[0], []byte(args[1]), ttl)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIER\tRESULT")
			for _, o := range report {
				result := "ok"
				if !o.Succeeded {
					result = "dropped: " + o.Err.Error()
				}
				fmt.Fprintf(w, "%s\t%s\n", o.Tier, result)
			}
			return w.Flush()
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "entry lifetime (default from config)")
	return cmd
}

func newCacheDeleteCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key>",
		Short: "Remove a key from every tier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := openEngine(ctx, g)
			if err != nil {
				return err
			}
			defer func() { _ = e.Close() }()

			if err := e.Delete(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %q.\n", args[0])
			return nil
		},
	}
}

func newCachePruneCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Remove expired entries from every tier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := openEngine(ctx, g)
			if err != nil {
				return err
			}
			defer func() { _ = e.Close() }()

			n, err := e.PruneExpired(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired entries.\n", n)
			return nil
		},
	}
}

func newCacheClearCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Erase every tier, including reading and artifact history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := openEngine(ctx, g)
			if err != nil {
				return err
			}
			defer func() { _ = e.Close() }()

			if err := e.ClearAll(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "All cache tiers cleared.")
			return nil
		},
	}
}

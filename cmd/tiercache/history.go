package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

const payloadPreview = 60

// preview shortens s to payloadPreview runes.
func preview(s string) string {
	r := []rune(s)
	if len(r) <= payloadPreview {
		return s
	}
	return string(r[:payloadPreview-3]) + "..."
}

func newReadingsCmd(g *globalFlags) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "readings <owner>",
		Short: "List an owner's cached readings, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := openEngine(ctx, g)
			if err != nil {
				return err
			}
			defer func() { _ = e.Close() }()

			recs, err := e.ReadingsByOwner(ctx, args[0], limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(recs) == 0 {
				fmt.Fprintln(out, "No readings found.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCREATED\tPAYLOAD")
			for _, r := range recs {
				fmt.Fprintf(w, "%s\t%s\t%s\n", r.ID, humanize.Time(r.CreatedAt), preview(string(r.Payload)))
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum records to show")
	return cmd
}

func newArtifactsCmd(g *globalFlags) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "artifacts <producer>",
		Short: "List dedup records for a producer, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := openEngine(ctx, g)
			if err != nil {
				return err
			}
			defer func() { _ = e.Close() }()

			recs, err := e.ArtifactsByProducer(ctx, args[0], limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(recs) == 0 {
				fmt.Fprintln(out, "No artifacts found.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "DIGEST\tCREATED\tSIZE\tPAYLOAD")
			for _, r := range recs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Digest[:12], humanize.Time(r.CreatedAt),
					humanize.Bytes(uint64(len(r.Payload))), preview(r.Payload))
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum records to show")
	return cmd
}

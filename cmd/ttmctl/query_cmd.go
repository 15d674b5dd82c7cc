package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/onecodex/taxonomy-time-machine/internal/types"
)

func newEventsCmd() *cobra.Command {
	var asOf string
	cmd := &cobra.Command{
		Use:   "events <tax_id>",
		Short: "List every event recorded for a tax ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			at, err := parseAsOf(asOf)
			if err != nil {
				return err
			}
			store, engine, err := openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()
			events, err := engine.GetEvents(cmd.Context(), types.TaxID(args[0]), at)
			if err != nil {
				return err
			}
			return printEvents(events)
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "ISO-8601 datetime, or a relative expression like 'yesterday'")
	return cmd
}

func newLineageCmd() *cobra.Command {
	var asOf string
	cmd := &cobra.Command{
		Use:   "lineage <tax_id>",
		Short: "Print the ancestor chain for a tax ID, child first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			at, err := parseAsOf(asOf)
			if err != nil {
				return err
			}
			store, engine, err := openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()
			lineage, err := engine.GetLineage(cmd.Context(), types.TaxID(args[0]), at)
			if err != nil {
				return err
			}
			return printEvents(lineage)
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "ISO-8601 datetime, or a relative expression like 'yesterday'")
	return cmd
}

func newChildrenCmd() *cobra.Command {
	var asOf string
	cmd := &cobra.Command{
		Use:   "children <tax_id>",
		Short: "List the direct children of a tax ID at a point in time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			at, err := parseAsOf(asOf)
			if err != nil {
				return err
			}
			store, engine, err := openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()
			children, err := engine.GetChildren(cmd.Context(), types.TaxID(args[0]), at)
			if err != nil {
				return err
			}
			return printEvents(children)
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "ISO-8601 datetime, or a relative expression like 'yesterday'")
	return cmd
}

func newVersionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "versions <tax_id>",
		Short: "List the dates a tax ID's lineage changed shape",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, engine, err := openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()
			versions, err := engine.GetVersions(cmd.Context(), types.TaxID(args[0]))
			if err != nil {
				return err
			}
			for _, v := range versions {
				fmt.Println(v.Format("2006-01-02"))
			}
			return nil
		},
	}
	return cmd
}

func newSearchCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search taxa by name or tax ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, engine, err := openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()
			results, err := engine.SearchNames(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			return printEvents(results)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum number of results")
	return cmd
}

func newRandomSpeciesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "random-species",
		Short: "Print a uniformly random species and its event count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, engine, err := openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()
			ev, count, err := engine.RandomSpecies(cmd.Context())
			if err != nil {
				return err
			}
			obj, err := eventJSON(ev)
			if err != nil {
				return err
			}
			fmt.Printf("%s (event_count=%d)\n", obj, count)
			return nil
		},
	}
	return cmd
}

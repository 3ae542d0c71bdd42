package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/javajack/xlmap/geocode"
)

func newGeocodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "geocode",
		Short: "Query the address database",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "address <text>...",
		Short: "Find the coordinates of an address",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ix := newIndex()
			lat, lon, ok := ix.Coords(strings.Join(args, " "))
			if !ok {
				return fmt.Errorf("no match (%d addresses, %s)", ix.Len(), ix.State())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s,%s\n", lat, lon)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "reverse <lat> <lon>",
		Short: "Find the address nearest to coordinates",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lat, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("latitude: %w", err)
			}
			lon, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("longitude: %w", err)
			}
			ix := newIndex()
			addr, ok := ix.Address(lat, lon)
			if !ok {
				return fmt.Errorf("no match (%d addresses, %s)", ix.Len(), ix.State())
			}
			fmt.Fprintln(cmd.OutOrStdout(), addr)
			return nil
		},
	})
	return cmd
}

func newIndex() *geocode.Index {
	return geocode.NewIndex(cfg.AddressCSV,
		geocode.WithThreshold(cfg.FuzzyThreshold),
		geocode.WithLogger(logger.Named("geocode")))
}

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arloliu/go-scopegrab/capture"
)

func newInfoCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "info [hostname]",
		Short: "Show the identity, displayed channels and memory depth of an oscilloscope",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			host, err := a.hostname(args)
			if err != nil {
				return err
			}

			report, err := capture.Inspect(cmd.Context(), a.options(host, yes))
			if err != nil {
				return err
			}

			channels := "none"
			if len(report.Channels) > 0 {
				channels = strings.Join(report.Channels, ", ")
			}

			fmt.Fprintf(a.stdout, "Manufacturer: %s\n", report.Identity.Manufacturer)
			fmt.Fprintf(a.stdout, "Model:        %s\n", report.Identity.Model)
			fmt.Fprintf(a.stdout, "Serial:       %s\n", report.Identity.Serial)
			fmt.Fprintf(a.stdout, "Firmware:     %s\n", report.Identity.Firmware)
			fmt.Fprintf(a.stdout, "Channels:     %s\n", channels)
			fmt.Fprintf(a.stdout, "Memory depth: %d points\n", report.MemoryDepth)

			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "continue without asking when the instrument is not a DS1000Z")

	return cmd
}

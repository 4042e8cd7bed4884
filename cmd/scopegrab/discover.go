package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/arloliu/go-scopegrab/discovery"
)

// browse is replaced in tests.
var browse = discovery.Browse

func newDiscoverCmd(a *app) *cobra.Command {
	var (
		timeout  time.Duration
		services []string
	)

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "List LXI instruments announced on the local network",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			found, err := browse(cmd.Context(), timeout, services...)
			if err != nil {
				return err
			}

			if len(found) == 0 {
				fmt.Fprintln(a.stdout, "No instruments found.")
				return nil
			}

			w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "HOST\tPORT\tSERVICE\tINSTANCE\tHOSTNAME")
			for _, inst := range found {
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n",
					inst.Host(), inst.Port, inst.Service, inst.Instance, strings.TrimSuffix(inst.Hostname, "."))
			}

			return w.Flush()
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", discovery.DefaultTimeout, "how long to listen for announcements")
	cmd.Flags().StringSliceVar(&services, "service", nil, "service types to browse (default _scpi-raw._tcp and _lxi._tcp)")

	return cmd
}

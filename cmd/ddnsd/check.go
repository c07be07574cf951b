package main

import (
	"fmt"
	"net/netip"

	"github.com/rsclarke/ddnsd/internal/ddns"
	"github.com/rsclarke/ddnsd/internal/resolve"
	"github.com/spf13/cobra"
)

var checkFlags struct {
	clientConfig
	resolver string
	fqdn     string
}

var checkCmd = &cobra.Command{
	Use:   "check <host>",
	Short: "Check that DNS answers with the stored addresses of a host",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	addClientFlags(checkCmd, &checkFlags.clientConfig)
	checkCmd.Flags().StringVar(&checkFlags.resolver, "resolver", "1.1.1.1:53", "DNS server to query")
	checkCmd.Flags().StringVar(&checkFlags.fqdn, "fqdn", "", "name to query (default: the host name)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	c, err := checkFlags.newClient()
	if err != nil {
		return err
	}

	name := args[0]
	resp, err := c.ListHosts(cmd.Context(), []string{name}, true, true)
	if err != nil {
		return err
	}
	h, ok := resp.Hosts[name]
	if !ok {
		return fmt.Errorf("host %s not found", name)
	}

	query := name
	if checkFlags.fqdn != "" {
		query = checkFlags.fqdn
	}

	mismatch := false
	for _, t := range ddns.RecordTypes {
		view := h.IPv4
		if t == ddns.RecordAAAA {
			view = h.IPv6
		}
		if view == nil || view.Value == nil {
			continue
		}
		want, err := netip.ParseAddr(*view.Value)
		if err != nil {
			return fmt.Errorf("stored %s address %q: %w", t, *view.Value, err)
		}

		got, err := resolve.Lookup(cmd.Context(), checkFlags.resolver, query, t)
		if err != nil {
			return err
		}
		status := "ok"
		if !resolve.Contains(got, want) {
			status = "MISMATCH"
			mismatch = true
		}
		fmt.Printf("%-4s  want %-39s  got %v  %s\n", t, want, got, status)
	}

	if mismatch {
		return fmt.Errorf("DNS does not yet answer with the stored addresses of %s", name)
	}
	return nil
}

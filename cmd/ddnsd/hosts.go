package main

import (
	"fmt"
	"sort"

	"github.com/rsclarke/ddnsd/internal/api"
	"github.com/rsclarke/ddnsd/internal/ddns"
	"github.com/spf13/cobra"
)

var hostsCmd = &cobra.Command{
	Use:   "hosts",
	Short: "List and create hosts",
}

var hostsListFlags struct {
	clientConfig
	names []string
}

var hostsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List visible hosts with their addresses",
	RunE:  runHostsList,
}

var hostsCreateFlags struct {
	clientConfig
	ipv4 bool
	ipv6 bool
}

var hostsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Register a new host (admin only)",
	Args:  cobra.ExactArgs(1),
	RunE:  runHostsCreate,
}

func init() {
	rootCmd.AddCommand(hostsCmd)
	hostsCmd.AddCommand(hostsListCmd, hostsCreateCmd)

	addClientFlags(hostsListCmd, &hostsListFlags.clientConfig)
	hostsListCmd.Flags().StringSliceVar(&hostsListFlags.names, "name", nil, "only list these hosts")

	addClientFlags(hostsCreateCmd, &hostsCreateFlags.clientConfig)
	hostsCreateCmd.Flags().BoolVar(&hostsCreateFlags.ipv4, "ipv4", true, "manage the A record")
	hostsCreateCmd.Flags().BoolVar(&hostsCreateFlags.ipv6, "ipv6", false, "manage the AAAA record")
}

func runHostsList(cmd *cobra.Command, args []string) error {
	c, err := hostsListFlags.newClient()
	if err != nil {
		return err
	}

	resp, err := c.ListHosts(cmd.Context(), hostsListFlags.names, true, true)
	if err != nil {
		return err
	}
	if len(resp.Hosts) == 0 {
		fmt.Println("No hosts found.")
		return nil
	}
	printHosts(resp.Hosts)
	return nil
}

func runHostsCreate(cmd *cobra.Command, args []string) error {
	c, err := hostsCreateFlags.newClient()
	if err != nil {
		return err
	}

	resp, err := c.CreateHost(cmd.Context(), api.CreateHostRequest{
		Name:        args[0],
		IPv4Enabled: hostsCreateFlags.ipv4,
		IPv6Enabled: hostsCreateFlags.ipv6,
	})
	if err != nil {
		return err
	}
	printHosts(resp.Hosts)
	return nil
}

func printHosts(hosts map[string]ddns.HostView) {
	names := make([]string, 0, len(hosts))
	for n := range hosts {
		names = append(names, n)
	}
	sort.Strings(names)

	fmt.Printf("%-32s  %-24s  %-39s  %s\n", "HOST", "IPV4", "IPV6", "CREATED")
	for _, n := range names {
		h := hosts[n]
		fmt.Printf("%-32s  %-24s  %-39s  %s\n", n,
			addressColumn(h.IPv4Enabled, h.IPv4),
			addressColumn(h.IPv6Enabled, h.IPv6),
			h.Creation.Local().Format("2006-01-02 15:04:05"))
	}
}

func addressColumn(enabled bool, a *ddns.AddressView) string {
	switch {
	case !enabled:
		return "disabled"
	case a == nil || a.Value == nil:
		return "-"
	default:
		return *a.Value
	}
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSuffixCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "suffix HOST...",
		Short: "Print the public suffix of each host",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := a.engine()
			if err != nil {
				return err
			}
			printResults(cmd.OutOrStdout(), args, eng.PublicSuffix)
			return nil
		},
	}
}

func newDomainCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "domain HOST...",
		Short: "Print the registrable domain (eTLD+1) of each host",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := a.engine()
			if err != nil {
				return err
			}
			printResults(cmd.OutOrStdout(), args, eng.RegistrableDomain)
			return nil
		},
	}
}

func newBaseCmd(a *app) *cobra.Command {
	parts := -1

	cmd := &cobra.Command{
		Use:   "base HOST...",
		Short: "Print the public suffix plus N labels of each host",
		Long: `Prints the public suffix of each host extended by --parts labels.
--parts 0 is the public suffix, --parts 1 the registrable domain. Without
the flag lookup.additional_parts from the config is used.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := a.engine()
			if err != nil {
				return err
			}

			n := parts
			if !cmd.Flags().Changed("parts") {
				n = a.cfg.Lookup.AdditionalParts
			}
			if n < 0 {
				return fmt.Errorf("--parts must be >= 0, got %d", n)
			}

			printResults(cmd.OutOrStdout(), args, func(host string) (string, bool) {
				return eng.BaseDomain(host, n)
			})
			return nil
		},
	}

	cmd.Flags().IntVarP(&parts, "parts", "n", parts, "labels to keep in front of the public suffix")
	return cmd
}

func newSameSiteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "samesite HOST_A HOST_B",
		Short: "Report whether two hosts share a registrable domain",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := a.engine()
			if err != nil {
				return err
			}

			same, err := eng.SameSite(normalizeArg(args[0]), normalizeArg(args[1]))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), same)
			return nil
		},
	}
}

func newExplainCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "explain HOST",
		Short: "Show which rule decided the public suffix of a host",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := a.engine()
			if err != nil {
				return err
			}

			host := normalizeArg(args[0])
			m, err := eng.Explain(host)
			if err != nil {
				return err
			}
			domain, domainOK := eng.RegistrableDomain(host)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "host:    %s\n", host)
			fmt.Fprintf(out, "suffix:  %s\n", formatResult(m.Suffix, m.OK))
			fmt.Fprintf(out, "domain:  %s\n", formatResult(domain, domainOK))

			if !m.Ruled {
				fmt.Fprintln(out, "rule:    -")
				return nil
			}
			fmt.Fprintf(out, "rule:    %s (%s)\n", m.Rule.Line(), m.Rule.Kind)

			// Where the rule came from is informational only.
			if stored, err := a.db.GetRule(m.Rule.Text); err == nil {
				fmt.Fprintf(out, "source:  %s [%s]\n", stored.Source, stored.Section)
			}
			return nil
		},
	}
}

func newCrossCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "crosscheck HOST...",
		Short: "Compare public suffixes with golang.org/x/net/publicsuffix",
		Long: `Looks up each host in the local ruleset and in the list compiled into
golang.org/x/net/publicsuffix and prints the hosts where they disagree.
The reference list treats an unknown TLD as a suffix of its own, so hosts
with no local rule always show up.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := a.engine()
			if err != nil {
				return err
			}

			hosts := make([]string, len(args))
			for i, arg := range args {
				hosts[i] = normalizeArg(arg)
			}

			out := cmd.OutOrStdout()
			mismatches := eng.CrossCheck(hosts)
			for _, m := range mismatches {
				fmt.Fprintf(out, "%s\tours=%s\treference=%s\ticann=%t\n",
					m.Host, formatResult(m.Ours, m.OursOK), m.Reference, m.ICANN)
			}
			fmt.Fprintf(out, "%d of %d hosts differ\n", len(mismatches), len(hosts))
			return nil
		},
	}
}

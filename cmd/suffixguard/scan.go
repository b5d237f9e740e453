package main

import (
	"fmt"
	"time"

	"suffixguard/internal/analysis"

	"github.com/spf13/cobra"
)

func newScanCmd(a *app) *cobra.Command {
	var thirdOnly bool

	cmd := &cobra.Command{
		Use:   "scan URL...",
		Short: "List the hosts a page references and whether they are first party",
		Long: `Fetches each page and collects the hosts of its links, scripts, images,
frames and forms. Every host is compared with the page by registrable
domain. Hosts matching analysis.ignore_hosts are skipped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := a.engine()
			if err != nil {
				return err
			}

			timeout := time.Duration(a.cfg.Analysis.TimeoutSeconds) * time.Second
			scanner, err := analysis.NewScanner(eng, a.cfg.Analysis.IgnoreHosts, timeout, a.cfg.Analysis.MaxConcurrency)
			if err != nil {
				return err
			}

			reports, err := scanner.ScanAll(cmd.Context(), args)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, r := range reports {
				if r.Err != nil {
					fmt.Fprintf(out, "%s\terror: %v\n", r.URL, r.Err)
					continue
				}
				fmt.Fprintf(out, "%s\tsite=%s\tfirst=%d\tthird=%d\tunknown=%d\n",
					r.URL, formatResult(r.RegistrableDomain, r.RegistrableDomain != ""),
					r.Count(analysis.FirstParty), r.Count(analysis.ThirdParty), r.Count(analysis.Unknown))

				for _, h := range r.Hosts {
					if thirdOnly && h.Party != analysis.ThirdParty {
						continue
					}
					fmt.Fprintf(out, "  %s\t%s\t%s\n", h.Party, h.Host, formatResult(h.RegistrableDomain, h.RegistrableDomain != ""))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&thirdOnly, "third-party", false, "only list third-party hosts")
	return cmd
}

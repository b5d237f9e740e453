package main

import (
	"fmt"
	"io"
	"os/signal"
	"sort"
	"syscall"

	"suffixguard/internal/packet"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newPcapCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "pcap FILE",
		Short: "Summarize the sites contacted in a packet capture",
		Long: `Reads DNS queries and TLS server names from a pcap file and groups the
hostnames by registrable domain.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := a.engine()
			if err != nil {
				return err
			}

			tally := packet.NewTally(eng)
			n, err := packet.ReadPcap(cmd.Context(), args[0], tally)
			if err != nil {
				return err
			}
			log.Info().Int("hostnames", n).Str("file", args[0]).Msg("capture read")

			printTally(cmd.OutOrStdout(), tally)
			return nil
		},
	}
}

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Observe live traffic through NFQUEUE and tally sites",
		Long: `Attaches to the netfilter queue network.queue_num and records the
hostname of every DNS query and TLS ClientHello that passes through it.
Packets are always accepted. The tally is printed on exit.

Requires root and an iptables rule such as:
  iptables -I OUTPUT -p udp --dport 53 -j NFQUEUE --queue-num 0 --queue-bypass`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := a.engine()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			tally := packet.NewTally(eng)
			listener := &packet.Listener{}
			cfg := packet.DefaultConfig(a.cfg.Network.QueueNum, a.cfg.Network.QueueSize)

			if err := listener.Start(ctx, tally, cfg); err != nil {
				return err
			}

			log.Info().Msg("shutting down")
			printTally(cmd.OutOrStdout(), tally)
			return nil
		},
	}
}

func printTally(out io.Writer, tally *packet.Tally) {
	for _, s := range tally.Sites() {
		fmt.Fprintf(out, "%d\t%s\n", s.Count, s.Site)
		for _, h := range s.Hosts {
			fmt.Fprintf(out, "\t%s\n", h)
		}
	}

	unmatched := tally.Unmatched()
	if len(unmatched) == 0 {
		return
	}
	hosts := make([]string, 0, len(unmatched))
	for h := range unmatched {
		hosts = append(hosts, h)
	}
	sort.Strings(hosts)
	for _, h := range hosts {
		fmt.Fprintf(out, "%d\t-\t%s\n", unmatched[h], h)
	}
}

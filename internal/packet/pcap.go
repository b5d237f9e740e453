package packet

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcapgo"
)

// ReadPcap feeds every DNS query and TLS SNI hostname in a capture file into
// tally. It returns the number of hostnames observed.
func ReadPcap(ctx context.Context, path string, tally *Tally) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	return readCapture(ctx, f, tally)
}

func readCapture(ctx context.Context, r io.Reader, tally *Tally) (int, error) {
	reader, err := pcapgo.NewReader(r)
	if err != nil {
		return 0, fmt.Errorf("reading pcap header: %w", err)
	}

	source := gopacket.NewPacketSource(reader, reader.LinkType())
	source.NoCopy = true

	seen := 0
	for {
		if err := ctx.Err(); err != nil {
			return seen, err
		}

		pkt, err := source.NextPacket()
		if err == io.EOF {
			return seen, nil
		}
		if err != nil {
			return seen, fmt.Errorf("reading packet: %w", err)
		}

		if domain, ok := DomainFromPacket(pkt); ok {
			tally.Observe(domain)
			seen++
		}
	}
}

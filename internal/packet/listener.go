package packet

import (
	"context"
	"fmt"
	"time"

	"suffixguard/internal/logging"

	"github.com/florianl/go-nfqueue"
)

// Listener observes queued packets and records the sites they talk to.
// Every packet is accepted; nothing is ever dropped.
type Listener struct {
	Config nfqueue.Config
	Nfq    *nfqueue.Nfqueue
}

// DefaultConfig returns the nfqueue settings used by `watch`.
func DefaultConfig(queueNum, queueSize int) nfqueue.Config {
	return nfqueue.Config{
		NfQueue:      uint16(queueNum),
		MaxPacketLen: 0xFFFF,
		MaxQueueLen:  uint32(queueSize),
		Copymode:     nfqueue.NfQnlCopyPacket,
		WriteTimeout: 15 * time.Millisecond,
	}
}

// Start registers the hook and blocks until ctx is done.
func (l *Listener) Start(ctx context.Context, tally *Tally, cfg nfqueue.Config) error {
	logger := logging.For("packet")

	nfq, err := nfqueue.Open(&cfg)
	if err != nil {
		return fmt.Errorf("could not open nfqueue socket: %w", err)
	}
	defer nfq.Close()

	l.Config = cfg
	l.Nfq = nfq

	fn := func(a nfqueue.Attribute) int {
		id := *a.PacketID

		if a.Payload != nil {
			if domain, found := ExtractDomain(*a.Payload); found {
				site, ok := tally.Observe(domain)
				logger.Debug().Uint32("id", id).Str("domain", domain).Str("site", site).Bool("matched", ok).Msg("packet")
			}
		}

		if err := l.Nfq.SetVerdict(id, nfqueue.NfAccept); err != nil {
			logger.Warn().Err(err).Uint32("id", id).Msg("set verdict failed")
		}
		return 0
	}

	errFn := func(e error) int {
		logger.Warn().Err(e).Msg("nfqueue error")
		return 0
	}

	if err := l.Nfq.RegisterWithErrorFunc(ctx, fn, errFn); err != nil {
		return fmt.Errorf("could not register hook: %w", err)
	}

	logger.Info().Uint16("queue", cfg.NfQueue).Msg("listening")
	<-ctx.Done()
	return nil
}

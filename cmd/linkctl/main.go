package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/peerlink/internal/config"
	"github.com/danmuck/peerlink/internal/observability"
	"github.com/danmuck/peerlink/internal/protocol"
	"github.com/danmuck/peerlink/internal/protocol/session"
	"github.com/danmuck/peerlink/internal/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "linkctl: %v\n", err)
		os.Exit(1)
	}
}

// run wires two endpoints over the in-memory loopback and walks one
// request/reply round trip plus one response timeout.
func run() error {
	configPath := flag.String("config", "", "path to link config (toml)")
	initPath := flag.String("init", "", "write a starter config to this path and exit")
	flag.Parse()

	if *initPath != "" {
		return config.WriteTemplate(*initPath, false)
	}

	cfg := defaultLinkConfig()
	if *configPath != "" {
		loaded, err := config.LoadLinkConfig(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	peer := "peer.remote"
	if len(cfg.Peers) > 0 {
		peer = cfg.Peers[0]
	}

	observability.InitLogger("linkctl", cfg.From)

	local := session.NewFactory(cfg.From, cfg.Session.Session())
	remote := session.NewFactory(peer, cfg.Session.Session())
	defer local.CloseAll()
	defer remote.CloseAll()

	toPeer := local.Session(peer)
	toLocal := remote.Session(cfg.From)

	// The remote side answers pings and ignores everything else.
	toLocal.SetDefaultResponse(session.HandlerFuncs{
		Receive: func(s *session.Session, msg protocol.Message) bool {
			if msg.Kind != "ping" {
				return false
			}
			pong := &protocol.Message{Kind: "pong", Body: []byte("pong")}
			if err := s.ReplyMsg(pong, msg); err != nil {
				log.Error().Err(err).Msg("reply failed")
			}
			return true
		},
	})

	localLink := transport.NewLoopback()
	remoteLink := transport.NewLoopback()
	localDriver, err := transport.NewDriver(toPeer, localLink, cfg.Driver.Driver())
	if err != nil {
		return err
	}
	remoteDriver, err := transport.NewDriver(toLocal, remoteLink, cfg.Driver.Driver())
	if err != nil {
		return err
	}
	localLink.Bind(remoteDriver)
	remoteLink.Bind(localDriver)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go localDriver.Run(ctx)
	go remoteDriver.Run(ctx)

	ponged := make(chan struct{})
	ping := &protocol.Message{Kind: "ping", Body: []byte("ping")}
	err = toPeer.SendMsg(ping, session.HandlerFuncs{
		Receive: func(_ *session.Session, msg protocol.Message) bool {
			log.Info().Str("kind", msg.Kind).Str("body", string(msg.Body)).Msg("reply received")
			close(ponged)
			return true
		},
	}, 2*time.Second)
	if err != nil {
		return err
	}

	timedOut := make(chan struct{})
	void := &protocol.Message{Kind: "void"}
	err = toPeer.SendMsg(void, session.HandlerFuncs{
		Exception: func(_ *session.Session, msg protocol.Message, err error) bool {
			log.Info().Err(err).Uint64("id", msg.ID).Msg("expected timeout fired")
			close(timedOut)
			return true
		},
	}, 600*time.Millisecond)
	if err != nil {
		return err
	}

	for _, ch := range []chan struct{}{ponged, timedOut} {
		select {
		case <-ch:
		case <-ctx.Done():
			return fmt.Errorf("round trip incomplete: %w", ctx.Err())
		}
	}
	log.Info().Msg("round trip complete")
	return nil
}

func defaultLinkConfig() config.LinkConfig {
	return config.LinkConfig{
		From:  "peer.local",
		Peers: []string{"peer.remote"},
		Driver: config.DriverConfig{
			PollIntervalMS: 20,
			ReapIntervalMS: 250,
		},
	}
}

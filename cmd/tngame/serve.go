package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/lixenwraith/tngame/config"
	"github.com/lixenwraith/tngame/indexdb"
	"github.com/lixenwraith/tngame/journal"
	"github.com/lixenwraith/tngame/logging"
	"github.com/lixenwraith/tngame/network"
	"github.com/lixenwraith/tngame/service"
	"github.com/lixenwraith/tngame/session"
	"github.com/lixenwraith/tngame/status"
)

const statusInterval = time.Minute

// server bundles the hub with the listeners it owns
type server struct {
	hub    *service.Hub
	stats  *status.Registry
	telnet *network.Server
	ws     *network.WSServer
}

// buildServer wires recorders, the session handler and listeners into a hub
// Listeners depend on the recorders so summaries are written until the last session ends
func buildServer(cfg config.Config, lg *logging.Logger) (*server, error) {
	if lg == nil {
		lg = logging.Discard()
	}
	sceneCfg, err := cfg.SceneConfig()
	if err != nil {
		return nil, err
	}
	sessCfg := session.Config{
		TickInterval:     cfg.TickInterval,
		HandshakeTimeout: cfg.HandshakeTimeout,
		WriteTimeout:     cfg.WriteTimeout,
		Scene:            sceneCfg,
	}

	hub := service.NewHub()
	stats := status.NewRegistry()
	var (
		recorders = []session.Recorder{stats}
		deps      []string
	)
	if cfg.JournalDir != "" {
		j := journal.New(cfg.JournalDir)
		if err := hub.Register(j); err != nil {
			return nil, err
		}
		recorders = append(recorders, j)
		deps = append(deps, j.Name())
	}
	if cfg.IndexPath != "" {
		idx := indexdb.New(cfg.IndexPath, lg.With("[indexdb] "))
		if err := hub.Register(idx); err != nil {
			return nil, err
		}
		recorders = append(recorders, idx)
		deps = append(deps, idx.Name())
	}

	var spawner session.Spawner
	if cfg.Mode == config.ModeRelay {
		spawner, err = relaySpawner(cfg)
		if err != nil {
			return nil, err
		}
	}
	handler, err := session.NewHandler(cfg.Mode, sessCfg, spawner, lg, recorders...)
	if err != nil {
		return nil, err
	}

	netCfg := network.DefaultConfig()
	netCfg.Address = cfg.Listen
	netCfg.MaxSessions = cfg.MaxSessions
	netCfg.AcceptRate = cfg.AcceptRate
	netCfg.AcceptBurst = cfg.AcceptBurst
	netCfg.WriteTimeout = cfg.WriteTimeout

	srv := &server{hub: hub, stats: stats}
	srv.telnet = network.NewServer("telnet", netCfg, handler, lg)
	srv.telnet.DependsOn(deps...)
	if err := hub.Register(srv.telnet); err != nil {
		return nil, err
	}

	if cfg.WSListen != "" {
		wsCfg := *netCfg
		wsCfg.Address = cfg.WSListen
		wsCfg.Telnet = false
		srv.ws = network.NewWSServer("websocket", &wsCfg, handler, lg)
		srv.ws.DependsOn(deps...)
		if err := hub.Register(srv.ws); err != nil {
			return nil, err
		}
	}
	return srv, nil
}

// relaySpawner runs the configured command, or this binary's child subcommand
func relaySpawner(cfg config.Config) (*session.ExecSpawner, error) {
	if cfg.Relay.Command != "" {
		return &session.ExecSpawner{Command: cfg.Relay.Command, Args: cfg.Relay.Args}, nil
	}
	self, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locate child binary: %w", err)
	}
	return &session.ExecSpawner{Command: self, Args: []string{"child"}}, nil
}

// runServer starts everything and blocks until ctx is cancelled
func runServer(ctx context.Context, cfg config.Config) error {
	lg, closer, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	srv, err := buildServer(cfg, lg)
	if err != nil {
		return err
	}
	if err := srv.hub.StartAll(); err != nil {
		return err
	}
	lg.Printf("serving %s mode, services %v", cfg.Mode, srv.hub.Started())

	report := time.NewTicker(statusInterval)
	defer report.Stop()
	for {
		select {
		case <-report.C:
			lg.Printf("status: active=%d %s", srv.telnet.ActiveSessions(), srv.stats)
		case <-ctx.Done():
			lg.Printf("shutting down: %d active sessions", srv.telnet.ActiveSessions())
			err := srv.hub.StopAll()
			lg.Printf("final status: %s", srv.stats)
			return err
		}
	}
}

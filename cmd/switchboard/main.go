// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/switchboard/cache"
	"github.com/bureau-foundation/switchboard/dispatch"
	"github.com/bureau-foundation/switchboard/gateway"
	"github.com/bureau-foundation/switchboard/lib/clock"
	"github.com/bureau-foundation/switchboard/lib/config"
	"github.com/bureau-foundation/switchboard/lib/version"
	"github.com/bureau-foundation/switchboard/notify"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	configPath  string
	url         string
	tokenFile   string
	recordPath  string
	natsURL     string
	verbose     bool
	showVersion bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	var opts options
	flagSet := pflag.NewFlagSet("switchboard", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&opts.configPath, "config", "", "path to config file (default: $"+config.ConfigEnv+")")
	flagSet.StringVar(&opts.url, "url", "", "gateway URL, overriding gateway.url")
	flagSet.StringVar(&opts.tokenFile, "token-file", "", "file holding the session token, overriding gateway.token_file")
	flagSet.StringVar(&opts.recordPath, "record", "", "write notifications to this file as a CBOR sequence")
	flagSet.StringVar(&opts.natsURL, "nats-url", "", "republish notifications to this NATS server, overriding relay.nats_url")
	flagSet.BoolVarP(&opts.verbose, "verbose", "v", false, "log at debug level")
	flagSet.BoolVar(&opts.showVersion, "version", false, "print version information and exit")
	flagSet.Usage = func() {
		fmt.Fprintf(stderr, "Usage:\n  switchboard [flags]\n\nFlags:\n")
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(args); err != nil {
		return nil, err
	}
	if flagSet.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument: %s", flagSet.Arg(0))
	}
	return &opts, nil
}

func loadConfig(opts *options) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if opts.configPath != "" {
		cfg, err = config.LoadFile(opts.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if opts.url != "" {
		cfg.Gateway.URL = opts.url
	}
	if opts.tokenFile != "" {
		cfg.Gateway.TokenFile = opts.tokenFile
	}
	if opts.natsURL != "" {
		cfg.Relay.NATSURL = opts.natsURL
	}
	if opts.verbose {
		cfg.Log.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	if opts.showVersion {
		info := version.Info()
		if opts.verbose {
			info = version.Full()
		}
		fmt.Fprintf(stdout, "switchboard %s\n", info)
		return nil
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	level, err := cfg.Log.SlogLevel()
	if err != nil {
		return err
	}
	logger := newLogger(stderr, level)

	token, err := cfg.Token()
	if err != nil {
		return err
	}
	connectURL, err := cfg.Gateway.ConnectURL()
	if err != nil {
		return err
	}

	bus := notify.NewBus()
	bus.Subscribe(newPrinter(stdout, isTerminal(stdout)).Handle)

	if opts.recordPath != "" {
		file, err := os.Create(opts.recordPath)
		if err != nil {
			return fmt.Errorf("creating recording: %w", err)
		}
		defer file.Close()
		recorder := notify.NewRecorder(file, clock.Real())
		bus.Subscribe(recorder.Handle)
		defer func() {
			if err := recorder.Err(); err != nil {
				logger.Error("recording failed", "path", opts.recordPath, "error", err)
				return
			}
			logger.Info("recording closed", "path", opts.recordPath, "notifications", recorder.Count())
		}()
	}

	if cfg.Relay.NATSURL != "" {
		conn, err := nats.Connect(cfg.Relay.NATSURL, nats.Name("switchboard"))
		if err != nil {
			return fmt.Errorf("connecting to NATS at %s: %w", cfg.Relay.NATSURL, err)
		}
		defer func() {
			if err := conn.Drain(); err != nil {
				logger.Warn("draining NATS connection failed", "error", err)
			}
		}()
		bus.Subscribe(notify.NewRelay(conn, cfg.Relay.SubjectPrefix, logger).Handle)
		logger.Info("relaying notifications", "nats_url", cfg.Relay.NATSURL, "subject_prefix", cfg.Relay.SubjectPrefix)
	}

	dispatcher := dispatch.New(dispatch.Config{
		Cache:    cache.NewMemory(),
		Notifier: bus,
		Logger:   logger.With("component", "dispatch"),
	})

	client, err := gateway.New(gateway.Config{
		URL:   connectURL,
		Token: token,
		Properties: gateway.IdentifyProperties{
			OS:             cfg.Gateway.Properties.OS,
			Browser:        cfg.Gateway.Properties.Browser,
			Device:         cfg.Gateway.Properties.Device,
			BrowserVersion: version.Short(),
		},
		Capabilities:        cfg.Gateway.Capabilities,
		Intents:             cfg.Gateway.Intents,
		LargeThreshold:      cfg.Gateway.LargeThreshold,
		Compress:            cfg.Gateway.Compress,
		Dispatcher:          dispatcher,
		Notifier:            bus,
		Logger:              logger.With("component", "gateway"),
		ReconnectDelay:      cfg.Reconnect.Delay.Std(),
		MaxReconnectDelay:   cfg.Reconnect.MaxDelay.Std(),
		InvalidSessionDelay: cfg.Reconnect.InvalidSessionDelay.Std(),
		InflateChunkSize:    cfg.Inflate.ChunkSize,
	})
	if err != nil {
		return err
	}

	logger.Info("starting switchboard", "version", version.Info(), "url", cfg.Gateway.URL)
	if err := client.Start(ctx); err != nil {
		return err
	}
	<-client.Done()
	client.Stop()
	logger.Info("switchboard stopped")
	return nil
}

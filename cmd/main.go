package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"speakerremote/internal/broadlink"
	"speakerremote/internal/cast"
	"speakerremote/internal/clock"
	"speakerremote/internal/config"
	"speakerremote/internal/device"
	"speakerremote/internal/playback"
)

const (
	discoveryTimeout    = 5 * time.Second
	discoveryRetryDelay = 10 * time.Second
	connectRetryDelay   = 10 * time.Second
)

var verbose bool

func main() {
	rootCmd := &cobra.Command{
		Use:   "speakerremote CONFIG_FILE",
		Short: "Links receiver playback state to smart-plug speaker power",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0])
		},
		SilenceUsage: true,
	}
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose (debug) logging")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(configPath string) error {
	logger, err := newLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		return err
	}
	defer logger.Sync()

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found, using environment variables")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("Failed to load configuration", zap.Error(err))
		return err
	}

	logger.Info("Starting speaker remote daemon",
		zap.String("receiver", cfg.Receiver.Name),
		zap.Int("speakers", len(cfg.Speakers)))

	dial := func(host string, port int, mac net.HardwareAddr, devtype uint16) (device.Session, error) {
		return broadlink.Dial(host, port, mac, devtype)
	}

	group, err := device.GroupFromConfig(cfg.Speakers, dial, logger)
	if err != nil {
		logger.Error("Invalid speaker configuration", zap.Error(err))
		return err
	}

	supervisor := playback.NewSupervisor(group, clock.NewRealClock(), logger)
	supervisor.Start()
	defer supervisor.Stop()

	receiver := waitForReceiver(cfg.Receiver.Name, logger)

	client := cast.NewClient(receiver.EventURL(), nil, logger)
	adapter := cast.NewAdapter(client, supervisor, logger)
	client.SetListener(adapter)
	defer client.Disconnect()

	for {
		if err := client.Connect(); err != nil {
			logger.Warn("Could not connect to receiver, retrying",
				zap.Error(err),
				zap.Duration("delay", connectRetryDelay))
			time.Sleep(connectRetryDelay)
			continue
		}
		break
	}

	// Converge speakers on whatever the receiver was already doing
	adapter.Resync()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Daemon running. Press Ctrl+C to exit.")

	<-sigChan

	logger.Info("Shutting down gracefully...")
	return nil
}

// waitForReceiver polls discovery until the configured receiver shows
// up. A missing receiver is never terminal; the daemon keeps looking.
func waitForReceiver(name string, logger *zap.Logger) cast.Receiver {
	for {
		logger.Info("Searching for receiver", zap.String("name", name))

		receivers, err := cast.Discover(cast.DefaultDiscoveryAddr, discoveryTimeout, logger)
		if err != nil {
			logger.Warn("Receiver discovery failed", zap.Error(err))
		} else if r, ok := cast.FindByName(receivers, name); ok {
			logger.Info("Found receiver",
				zap.String("name", r.Name),
				zap.String("host", r.Host),
				zap.Int("port", r.Port))
			return r
		} else {
			logger.Warn("Receiver not found, retrying",
				zap.String("name", name),
				zap.Duration("delay", discoveryRetryDelay))
		}

		time.Sleep(discoveryRetryDelay)
	}
}

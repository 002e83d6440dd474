package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/HerbHall/netbridge/internal/config"
	"github.com/HerbHall/netbridge/internal/event"
	"github.com/HerbHall/netbridge/internal/host"
	"github.com/HerbHall/netbridge/internal/netinfo"
	"github.com/HerbHall/netbridge/internal/netmanager"
	"github.com/HerbHall/netbridge/pkg/models"
	"github.com/HerbHall/netbridge/pkg/plugin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func newClassifyCmd() *cobra.Command {
	var (
		obs = models.Observation{Connected: true}
		nr  bool
	)
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify a connectivity observation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if obs.Medium == "" {
				return fmt.Errorf("--medium is required")
			}
			fmt.Fprintln(cmd.OutOrStdout(), netinfo.Classify(&obs, nr))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&obs.Medium, "medium", "", "network medium (wifi, mobile, ethernet, ...)")
	f.IntVar(&obs.RadioSubtypeID, "subtype-id", 0, "radio technology code")
	f.StringVar(&obs.RadioSubtypeName, "subtype-name", "", "radio technology name")
	f.BoolVar(&obs.Connected, "connected", true, "whether the network is connected")
	f.BoolVar(&nr, "nr", false, "treat 5G NR as available")
	return cmd
}

func newChannelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "channel <frequency-mhz>",
		Short: "Look up the Wi-Fi channel and band for a frequency",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			freq, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("invalid frequency %q: %w", args[0], err)
			}
			entry := netinfo.ChannelFor(freq)
			if entry.Channel == 0 {
				return fmt.Errorf("no channel for %s MHz", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "channel %d (%s)\n", entry.Channel, entry.Band)
			return nil
		},
	}
}

func newReplayCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "replay <script.yaml>",
		Short: "Feed a recorded host script through both reporters and print the reports",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := host.LoadScript(args[0])
			if err != nil {
				return err
			}
			logger := zap.NewNop()
			if verbose {
				if logger, err = zap.NewDevelopment(); err != nil {
					return err
				}
			}
			_, err = replay(cmd.Context(), script, cmd.OutOrStdout(), logger)
			return err
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log module activity to stderr")
	return cmd
}

// replayRecord is one line of replay output.
type replayRecord struct {
	Step    int    `json:"step"` // -1 for reports made at start
	Variant string `json:"variant"`
	Payload any    `json:"payload"`
}

// replay runs both reporting modules against a scripted source and writes
// one JSON line per report. It returns the number of reports.
func replay(ctx context.Context, script *host.Script, w io.Writer, logger *zap.Logger) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	src := host.NewScripted(nil)
	bus := event.NewBus(logger.Named("event"))
	nr := &netinfo.NRFlag{}
	modules := []plugin.Plugin{
		netinfo.New(src, nr),
		netmanager.New(src, nil, nr),
	}

	enc := json.NewEncoder(w)
	step := -1
	count := 0
	var encErr error
	unsub := bus.SubscribeAll(func(_ context.Context, ev plugin.Event) {
		if encErr != nil {
			return
		}
		encErr = enc.Encode(replayRecord{Step: step, Variant: ev.Source, Payload: ev.Payload})
		count++
	})
	defer unsub()

	for _, m := range modules {
		name := m.Info().Name
		// Polling is not part of a replay.
		v := viper.New()
		v.Set("poll_interval", "24h")
		if err := m.Init(ctx, plugin.Dependencies{
			Config: config.New(v),
			Logger: logger.Named(name),
			Bus:    bus,
		}); err != nil {
			return count, fmt.Errorf("init %s: %w", name, err)
		}
		if err := m.Start(ctx); err != nil {
			return count, fmt.Errorf("start %s: %w", name, err)
		}
		defer func() { _ = m.Stop(context.Background()) }()
	}

	step = 0
	script.Play(src, func(i int, _ host.ScriptStep) { step = i + 1 })
	return count, encErr
}

package shell

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/S1riyS/happyphone/server/internal/models"
	"github.com/S1riyS/happyphone/server/internal/pkg/kerrors"
)

const netVerbs = `"show", "speed", "latency", "jitter", "loss", "on", "off", or "reset"`

// cmdNet shows and tunes the simulated link. Every change re-times the
// downloads already in flight.
type cmdNet struct{}

func (cmdNet) Run(ctx context.Context, env *Env, args []string) (string, error) {
	verb := "show"
	if len(args) > 0 {
		verb = strings.ToLower(args[0])
	}

	if verb == "show" {
		cfg, err := env.Network.Get(ctx, env.UserID)
		if err != nil {
			return "", err
		}
		return describeNetwork(cfg), nil
	}

	var (
		update func(cfg *models.NetworkConfig)
		msg    string
	)
	switch verb {
	case "on", "off":
		enabled := verb == "on"
		update = func(cfg *models.NetworkConfig) { cfg.Enabled = enabled }
		msg = "Network simulation disabled"
		if enabled {
			msg = "Network simulation enabled"
		}
	case "reset":
		update = func(cfg *models.NetworkConfig) { *cfg = models.DefaultNetworkConfig() }
		msg = "Network settings reset to defaults"
	case "speed", "latency", "jitter", "loss":
		value, err := netValue(verb, args[1:])
		if err != nil {
			return "", err
		}
		update, msg = setter(verb, value)
	default:
		return "", kerrors.New(kerrors.InvalidArgument, "net: Unknown setting '%s'. Use %s.", verb, netVerbs)
	}

	cfg, err := env.Network.Update(ctx, env.UserID, update)
	if err != nil {
		return "", err
	}
	if n := env.Packages.Reconfigure(env.UserID, cfg); n > 0 {
		msg += fmt.Sprintf("\nRecalculated %d active download(s)", n)
	}
	return msg, nil
}

func netValue(verb string, args []string) (float64, error) {
	if len(args) == 0 {
		return 0, usage("Usage: net %s <value>", verb)
	}
	value, err := strconv.ParseFloat(args[0], 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, kerrors.New(kerrors.InvalidArgument, "net: Invalid %s '%s'", verb, args[0])
	}
	if verb == "speed" && value <= 0 {
		return 0, kerrors.New(kerrors.InvalidArgument, "net: Speed must be greater than 0")
	}
	return value, nil
}

// setter clamps value into the valid range of the setting.
func setter(verb string, value float64) (func(cfg *models.NetworkConfig), string) {
	switch verb {
	case "speed":
		return func(cfg *models.NetworkConfig) { cfg.SpeedMbps = value },
			fmt.Sprintf("Network speed set to %s Mbps", formatNumber(value))
	case "latency":
		value = max(value, 0)
		return func(cfg *models.NetworkConfig) { cfg.LatencyMs = value },
			fmt.Sprintf("Network latency set to %s ms", formatNumber(value))
	case "jitter":
		value = max(value, 0)
		return func(cfg *models.NetworkConfig) { cfg.JitterMs = value },
			fmt.Sprintf("Network jitter set to %s ms", formatNumber(value))
	default:
		value = min(max(value, 0), 100)
		return func(cfg *models.NetworkConfig) { cfg.PacketLossPercent = value },
			fmt.Sprintf("Packet loss set to %s%%", formatNumber(value))
	}
}

func describeNetwork(cfg models.NetworkConfig) string {
	state := "enabled"
	if !cfg.Enabled {
		state = "disabled"
	}
	return strings.Join([]string{
		"Network: " + state,
		"Speed: " + formatNumber(cfg.SpeedMbps) + " Mbps",
		"Latency: " + formatNumber(cfg.LatencyMs) + " ms",
		"Jitter: " + formatNumber(cfg.JitterMs) + " ms",
		"Packet loss: " + formatNumber(cfg.PacketLossPercent) + "%",
	}, "\n")
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

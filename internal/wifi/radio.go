package wifi

import (
	"context"
	"time"

	"github.com/rook-computer/msgboard/internal/system"
)

// ScriptRadio drives the wifi interface through the board's helper scripts.
type ScriptRadio struct {
	Runner system.Runner
}

func (r ScriptRadio) Connect(ctx context.Context, ssid, password string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout+5*time.Second)
	defer cancel()
	return system.JoinWiFi(ctx, r.Runner, ssid, password, timeout)
}

func (r ScriptRadio) ConfigureStatic(ctx context.Context, cfg system.StaticIPv4) error {
	return system.ConfigureStaticIPv4(ctx, r.Runner, cfg)
}

func (r ScriptRadio) IPv4(ctx context.Context) (string, error) { return system.WiFiIPv4(ctx, r.Runner) }

func (r ScriptRadio) MAC(ctx context.Context) (string, error) { return system.WiFiMAC(ctx, r.Runner) }

func (r ScriptRadio) DNS(ctx context.Context) (string, error) { return system.WiFiDNS(ctx, r.Runner) }

package system

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	netInfoScript = "netinfo.sh"
	wifiScript    = "wifi.sh"
)

func WiFiIPv4(ctx context.Context, r Runner) (string, error) {
	stdout, stderr, err := r.Run(ctx, netInfoScript, "wifi-ip")
	if err != nil {
		return "", fmt.Errorf("netinfo wifi-ip failed: %v: %s", err, stderr)
	}
	return strings.TrimSpace(stdout), nil
}

func WiFiMAC(ctx context.Context, r Runner) (string, error) {
	stdout, stderr, err := r.Run(ctx, netInfoScript, "wifi-mac")
	if err != nil {
		return "", fmt.Errorf("netinfo wifi-mac failed: %v: %s", err, stderr)
	}
	return strings.TrimSpace(stdout), nil
}

func WiFiDNS(ctx context.Context, r Runner) (string, error) {
	stdout, stderr, err := r.Run(ctx, netInfoScript, "wifi-dns")
	if err != nil {
		return "", fmt.Errorf("netinfo wifi-dns failed: %v: %s", err, stderr)
	}
	return strings.TrimSpace(stdout), nil
}

// JoinWiFi asks the wifi script to associate with ssid, giving up after timeout.
func JoinWiFi(ctx context.Context, r Runner, ssid, password string, timeout time.Duration) error {
	ssid = strings.TrimSpace(ssid)
	password = strings.TrimSpace(password)
	if ssid == "" {
		return fmt.Errorf("wifi join failed: empty ssid")
	}
	secs := int(timeout / time.Second)
	if secs < 1 {
		secs = 1
	}
	_, stderr, err := r.Run(ctx, wifiScript, "join", ssid, password, strconv.Itoa(secs))
	if err != nil {
		return fmt.Errorf("wifi join failed: %v: %s", err, stderr)
	}
	return nil
}

// StaticIPv4 is a fixed address configuration for the wifi interface.
type StaticIPv4 struct {
	Address string
	Netmask string
	Gateway string
	DNS     string
}

func ConfigureStaticIPv4(ctx context.Context, r Runner, cfg StaticIPv4) error {
	if cfg.Address == "" {
		return fmt.Errorf("wifi static failed: empty address")
	}
	_, stderr, err := r.Run(ctx, wifiScript, "static", cfg.Address, cfg.Netmask, cfg.Gateway, cfg.DNS)
	if err != nil {
		return fmt.Errorf("wifi static failed: %v: %s", err, stderr)
	}
	return nil
}

// Package wifi keeps the board's wireless link up and checks that the
// internet is actually reachable through it.
package wifi

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/rook-computer/msgboard/internal/logging"
	"github.com/rook-computer/msgboard/internal/state"
	"github.com/rook-computer/msgboard/internal/system"
)

const (
	DefaultJoinTimeout    = 30 * time.Second
	DefaultAddressTimeout = 15 * time.Second
	DefaultProbeTimeout   = 5 * time.Second
	DefaultProbeURL       = "https://www.adafruit.com"
	DefaultCheckAttempts  = 3

	addressPollInterval = 200 * time.Millisecond
)

// Radio is the network interface the supervisor drives.
type Radio interface {
	Connect(ctx context.Context, ssid, password string, timeout time.Duration) error
	ConfigureStatic(ctx context.Context, cfg system.StaticIPv4) error
	// IPv4 returns the current address, or "" / "0.0.0.0" when there is none.
	IPv4(ctx context.Context) (string, error)
	MAC(ctx context.Context) (string, error)
	DNS(ctx context.Context) (string, error)
}

// Prober reports whether the internet is reachable.
type Prober interface {
	Probe(ctx context.Context) bool
}

type Credentials struct {
	SSID     string
	Password string
	// Static is used when Static.Gateway is set; DHCP otherwise.
	Static system.StaticIPv4
}

// Supervisor connects the radio and verifies connectivity with retries.
// Connection problems are logged and reported as false, never as errors.
type Supervisor struct {
	Radio    Radio
	Prober   Prober
	Creds    Credentials
	Lifeline system.Lifeline
	Logger   logging.Logger

	JoinTimeout    time.Duration
	AddressTimeout time.Duration
	CheckAttempts  int

	// Sleep waits between attempts. Tests replace it.
	Sleep func(ctx context.Context, d time.Duration)
}

func (s *Supervisor) logger() logging.Logger { return logging.OrNoop(s.Logger) }

func (s *Supervisor) feed() {
	if s.Lifeline != nil {
		s.Lifeline.Feed()
	}
}

func (s *Supervisor) sleep(ctx context.Context, d time.Duration) {
	if s.Sleep != nil {
		s.Sleep(ctx, d)
		return
	}
	Sleep(ctx, d)
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// Connect configures static addressing if requested, joins the network and
// waits for an address. It reports whether the link came up.
func (s *Supervisor) Connect(ctx context.Context) bool {
	log := s.logger()
	log.Infof("wifi", "connecting to '%s'", s.Creds.SSID)
	if mac, err := s.Radio.MAC(ctx); err == nil {
		log.Debugf("wifi", "MAC: %s", mac)
	}

	if s.Creds.Static.Gateway != "" {
		if err := s.Radio.ConfigureStatic(ctx, s.Creds.Static); err != nil {
			log.Errorf("wifi", "static IP configuration failed: %v", err)
		} else {
			log.Debugf("wifi", "static IP: %s", s.Creds.Static.Address)
		}
	}

	joinTimeout := s.JoinTimeout
	if joinTimeout <= 0 {
		joinTimeout = DefaultJoinTimeout
	}
	if err := s.Radio.Connect(ctx, s.Creds.SSID, s.Creds.Password, joinTimeout); err != nil {
		log.Errorf("wifi", "connection failed: %v", err)
		return false
	}
	log.Infof("wifi", "connected")

	ip, ok := s.waitForAddress(ctx)
	if !ok {
		return false
	}
	log.Infof("wifi", "IP: %s", ip)
	if dns, err := s.Radio.DNS(ctx); err == nil && dns != "" {
		log.Debugf("wifi", "DNS: %s", dns)
	}
	return true
}

func (s *Supervisor) waitForAddress(ctx context.Context) (string, bool) {
	timeout := s.AddressTimeout
	if timeout <= 0 {
		timeout = DefaultAddressTimeout
	}
	start := time.Now()
	for {
		ip, err := s.Radio.IPv4(ctx)
		if err == nil && hasAddress(ip) {
			return ip, true
		}
		if time.Since(start) > timeout || ctx.Err() != nil {
			s.logger().Errorf("wifi", "timeout waiting for IP address")
			return "", false
		}
		s.sleep(ctx, addressPollInterval)
		s.feed()
	}
}

func hasAddress(ip string) bool {
	parsed := net.ParseIP(ip)
	return parsed != nil && !parsed.IsUnspecified()
}

// CheckConnectivity probes up to maxAttempts times. After a failed probe with
// attempts remaining it reconnects and sleeps 2^attempt seconds. A value of
// zero or less uses CheckAttempts.
func (s *Supervisor) CheckConnectivity(ctx context.Context, maxAttempts int) bool {
	if maxAttempts <= 0 {
		maxAttempts = s.CheckAttempts
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultCheckAttempts
	}
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if s.Prober.Probe(ctx) {
			return true
		}
		s.logger().Errorf("wifi", "connectivity check failed (attempt %d/%d)", attempt, maxAttempts)
		if ctx.Err() != nil {
			return false
		}
		if attempt < maxAttempts {
			s.Connect(ctx)
			s.sleep(ctx, Backoff(attempt))
		}
	}
	return false
}

// Info reports the current link for the status surface. Lookup errors leave
// the field empty.
func (s *Supervisor) Info(ctx context.Context) state.NetworkInfo {
	info := state.NetworkInfo{SSID: s.Creds.SSID}
	if ip, err := s.Radio.IPv4(ctx); err == nil && hasAddress(ip) {
		info.IP = ip
	}
	if mac, err := s.Radio.MAC(ctx); err == nil {
		info.MAC = mac
	}
	return info
}

// Backoff returns 2^attempt seconds.
func Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 10 {
		attempt = 10
	}
	return time.Duration(1<<uint(attempt)) * time.Second
}

// HTTPProber issues a GET and expects 200.
type HTTPProber struct {
	URL     string
	Timeout time.Duration
	Client  *http.Client
}

func (p HTTPProber) Probe(ctx context.Context) bool {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	url := p.URL
	if url == "" {
		url = DefaultProbeURL
	}
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

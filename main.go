package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/rook-computer/msgboard/internal/app"
	"github.com/rook-computer/msgboard/internal/config"
	"github.com/rook-computer/msgboard/internal/display"
	"github.com/rook-computer/msgboard/internal/feeds"
	"github.com/rook-computer/msgboard/internal/icon"
	"github.com/rook-computer/msgboard/internal/logging"
	"github.com/rook-computer/msgboard/internal/render"
	"github.com/rook-computer/msgboard/internal/state"
	"github.com/rook-computer/msgboard/internal/system"
	"github.com/rook-computer/msgboard/internal/web"
	"github.com/rook-computer/msgboard/internal/wifi"
)

const envStdioLog = "MSGBOARD_STDIO_LOG"

// network is both the coordinator's link supervisor and the client's
// connectivity check.
type network interface {
	app.Network
	feeds.Connectivity
}

func main() {
	configPath := flag.String("config", "", "path to a YAML config file; also configurable via "+config.ConfigPathEnvVar)
	debug := flag.Bool("debug", false, "enable debug logging")
	headless := flag.Bool("headless", false, "log frames instead of drawing to the framebuffer")
	stdioLog := flag.String("stdio-log", "", "redirect stdout+stderr (including panics) to this file; also configurable via "+envStdioLog)
	flag.Parse()

	// Best-effort: redirect all stdout/stderr output (including panic stack traces)
	// to a file so crashes are diagnosable even when the console is left in graphics mode.
	logPath := *stdioLog
	if logPath == "" {
		logPath = os.Getenv(envStdioLog)
	}
	if logPath != "" {
		if err := redirectStdIO(logPath); err != nil {
			fmt.Println("stdio log redirect error:", err)
		}
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(2)
	}
	if *debug {
		cfg.Logging.Level = "debug"
	}
	if *headless {
		cfg.Display.Headless = true
	}

	var out io.Writer = os.Stderr
	if cfg.Logging.File != "" {
		f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Fprintln(os.Stderr, "log file open error:", err)
		} else {
			defer f.Close()
			out = f
		}
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Output: out})
	logger := logging.New(logging.Base())
	logger.Infof("main", "msgboard starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Errorf("main", "%v", err)
		stop()
		os.Exit(1)
	}
	logger.Infof("main", "msgboard stopped")
}

func run(ctx context.Context, cfg *config.Config, logger logging.Logger) error {
	heartbeat := &system.Heartbeat{}
	if cfg.System.Watchdog {
		wd, err := system.OpenWatchdog()
		if err != nil {
			logger.Errorf("main", "watchdog unavailable: %v", err)
		} else {
			heartbeat.Next = wd
			defer wd.Close()
		}
	}

	rc := render.DefaultConfig()
	rc.Device = cfg.Display.Device
	rc.Width = cfg.Display.Width
	rc.Height = cfg.Display.Height
	rc.AssetDir = cfg.Display.AssetDir
	rc.FontDir = cfg.Display.FontDir
	rc.FontSize = cfg.Display.FontSize
	rc.FrameRate = cfg.Display.FrameRate
	rc.ScrollSpeed = cfg.Display.ScrollSpeed

	var screen render.Display
	if cfg.Display.Headless {
		screen = render.NewHeadless(rc, logger)
	} else {
		fb := render.NewFBRenderer(rc)
		fb.Logger = logger
		if err := fb.Start(ctx); err != nil {
			return fmt.Errorf("renderer start failed: %w", err)
		}
		defer fb.Stop()
		if cfg.System.ConsoleGraphics {
			system.PrepareConsole(logger)
			defer system.RestoreConsole(logger)
		}
		screen = fb
	}

	prober := wifi.HTTPProber{URL: cfg.WiFi.ProbeURL, Timeout: cfg.WiFi.ProbeTimeout}
	var link network = wifi.HostNetwork{Prober: prober}
	if cfg.WiFi.Enabled {
		link = &wifi.Supervisor{
			Radio:  wifi.ScriptRadio{Runner: system.ShellRunner{Logger: logger, NoSudo: !cfg.System.Sudo}},
			Prober: prober,
			Creds: wifi.Credentials{
				SSID:     cfg.WiFi.SSID,
				Password: cfg.WiFi.Password,
				Static: system.StaticIPv4{
					Address: cfg.WiFi.StaticIP,
					Netmask: cfg.WiFi.Netmask,
					Gateway: cfg.WiFi.Gateway,
					DNS:     cfg.WiFi.DNS,
				},
			},
			Lifeline:       heartbeat,
			Logger:         logger,
			JoinTimeout:    cfg.WiFi.JoinTimeout,
			AddressTimeout: cfg.WiFi.AddressTimeout,
			CheckAttempts:  cfg.WiFi.CheckAttempts,
		}
	}

	client := feeds.New(feeds.Config{
		BaseURL:     cfg.Remote.BaseURL,
		Username:    cfg.Remote.Username,
		APIKey:      cfg.Remote.APIKey,
		Group:       cfg.Remote.Group,
		TextFeed:    cfg.Remote.TextFeed,
		MessageFeed: cfg.Remote.MessageFeed,
		Timeout:     cfg.Remote.Timeout,
		MaxRetries:  cfg.Remote.MaxRetries,
		FetchLimit:  cfg.Remote.FetchLimit,
	})
	client.Connectivity = link
	client.Lifeline = heartbeat
	client.Logger = logger

	icons := icon.New()
	interp := display.New(screen, icons, cfg.Display.Width)
	interp.Images = os.DirFS(cfg.Display.AssetDir)
	interp.Group = cfg.Remote.Group
	interp.Lifeline = heartbeat
	interp.Logger = logger

	store := state.NewStore()
	board := app.New(app.Config{
		PollInterval:  cfg.Board.PollInterval,
		BusyWait:      cfg.Board.BusyWait,
		IdleWait:      cfg.Board.IdleWait,
		QueueCapacity: cfg.Board.QueueCapacity,
		FetchLimit:    cfg.Remote.FetchLimit,
		StatusURL:     cfg.Server.PublicURL,
		StatusAddr:    statusAddr(cfg.Server),
		ReadySplash:   cfg.Board.ReadySplash,
		SplashSize:    cfg.Display.Height,
	}, store, link, client, interp, icons)
	board.Lifeline = heartbeat
	board.Logger = logger
	board.FreeMemory = system.FreeMemory

	var server web.Server = web.NoopServer{}
	if cfg.Server.Enabled {
		server = web.NewHTTPServer(cfg.Server.Addr, web.NewRouter(web.RouterConfig{
			Status:      store,
			DevCORS:     cfg.Server.DevCORS,
			CORSOrigins: cfg.Server.CORSOrigins,
			RateLimit:   cfg.Server.RateLimit,
		}), logger)
	}

	sup := suture.New("msgboard", suture.Spec{
		EventHook: func(e suture.Event) {
			logger.Errorf("supervisor", "%s", e)
		},
		FailureThreshold: 5,
		FailureDecay:     30,
		FailureBackoff:   15 * time.Second,
		Timeout:          10 * time.Second,
	})
	sup.Add(board)
	sup.Add(server)

	err := sup.Serve(ctx)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func statusAddr(s config.ServerConfig) string {
	if !s.Enabled {
		return ""
	}
	return s.Addr
}

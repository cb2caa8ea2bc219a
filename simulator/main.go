// Command simulator serves a local stand-in for the remote queue service so
// a headless board can be run and poked without an account.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rook-computer/msgboard/internal/feeds"
	"github.com/rook-computer/msgboard/internal/feeds/feedstest"
	"github.com/rook-computer/msgboard/internal/logging"
	"github.com/rook-computer/msgboard/internal/web"
)

const (
	envListenAddr = "MSGBOARD_SIM_LISTEN"
	envAPIKey     = "MSGBOARD_SIM_API_KEY"
)

func main() {
	listenDefault := os.Getenv(envListenAddr)
	if listenDefault == "" {
		listenDefault = ":8081"
	}

	listenAddr := flag.String("listen", listenDefault, "http listen address; also configurable via "+envListenAddr)
	apiKey := flag.String("api-key", os.Getenv(envAPIKey), "require this key in the "+feeds.APIKeyHeader+" header; also configurable via "+envAPIKey)
	group := flag.String("group", feeds.DefaultGroup, "settings group name")
	devMode := flag.Bool("dev", false, "enable permissive CORS for the control API")
	seed := flag.Bool("seed", true, "queue a welcome text and message on startup")
	flag.Parse()

	logging.Init(logging.Config{Level: "debug"})
	logger := logging.New(logging.Base())

	processCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	remote := feedstest.New()
	remote.APIKey = *apiKey
	control := NewSimControl(remote, *group, feeds.DefaultTextFeed, feeds.DefaultMessageFeed)
	if *seed {
		seedDefaults(control)
	}

	server := web.NewHTTPServer(*listenAddr, newRouter(control, *devMode), logger)
	if err := server.Start(); err != nil {
		fmt.Println("server start error:", err)
		os.Exit(1)
	}

	fmt.Println("msgboard simulator listening on", server.ListenAddr())
	fmt.Println("Remote base URL: http://" + server.ListenAddr() + "/api/v2")
	fmt.Println("Control API: http://" + server.ListenAddr() + "/sim/")

	<-processCtx.Done()
	_ = server.Stop()
}

func newRouter(control *SimControl, devMode bool) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	if devMode {
		r.Use(web.WithDevCORS(nil))
	}
	r.Mount("/sim", control.Routes())
	r.Mount("/", control.Server.Handler())
	return r
}

func seedDefaults(c *SimControl) {
	c.SetSetting("font", "lemon")
	c.SetSetting("color", "#00FF00")
	c.SetSetting("background-enabled", "true")
	c.SetSetting("system-enabled", "true")
	c.PushText("Hello from the simulator")
	c.PushMessage(`{"name":"welcome","elements":[` +
		`{"kind":"color","data":"#FF8800"},` +
		`{"kind":"text","data":"msgboard"},` +
		`{"kind":"effect","data":"top-to-bottom"}]}`)
}

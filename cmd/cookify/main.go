package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/ayusman/cookify/internal/app"
	"github.com/ayusman/cookify/internal/artwork"
	"github.com/ayusman/cookify/internal/config"
	"github.com/ayusman/cookify/internal/gesture"
	"github.com/ayusman/cookify/internal/log"
	"github.com/ayusman/cookify/internal/playback"
	"github.com/ayusman/cookify/internal/plugin"
	"github.com/ayusman/cookify/internal/server"
	"github.com/ayusman/cookify/internal/store"
	"github.com/ayusman/cookify/internal/tracking"
	"github.com/ayusman/cookify/internal/tray"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "cookify:", err)
		os.Exit(1)
	}
}

func run() error {
	defaultConfig := ""
	if dir, err := config.DefaultDataDir(); err == nil {
		defaultConfig = filepath.Join(dir, "config.json")
	}

	configPath := flag.String("config", defaultConfig, "path to the JSON config file")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	replay := flag.String("replay", "", "play a JSON-lines tracking recording instead of the sensor")
	loop := flag.Bool("loop", false, "loop the replay recording")
	sink := flag.String("sink", "", "command sink: spotify or plugin")
	logLevel := flag.String("log-level", "", "log level: debug, info, warn, error")
	static := flag.String("static", "", "dashboard directory to serve at /")
	noTray := flag.Bool("no-tray", false, "run without the system tray icon")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	overrideString(&cfg.Addr, *addr)
	overrideString(&cfg.Tracking.Replay, *replay)
	overrideString(&cfg.Sink, *sink)
	overrideString(&cfg.LogLevel, *logLevel)
	overrideString(&cfg.StaticDir, *static)
	if *loop {
		cfg.Tracking.Loop = true
	}
	if *noTray {
		cfg.Tray = false
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log.Init(cfg.LogLevel)
	logger := log.With("component", "main")
	logger.Info("cookify starting", "sink", cfg.Sink, "addr", cfg.Addr)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	st, err := store.New(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}
	defer st.Close()

	var spotify *playback.SpotifyClient
	if cfg.SpotifyConfigured() {
		spotify, err = playback.NewSpotifyClient(playback.SpotifyConfig{
			ClientID:     cfg.Spotify.ClientID,
			ClientSecret: cfg.Spotify.ClientSecret,
			RedirectURL:  cfg.Spotify.RedirectURL,
			Tokens:       playback.NewDBTokenStore(st.Tokens(), "spotify"),
		})
		if err != nil {
			return err
		}
	} else {
		logger.Warn("spotify credentials not set, playback status is unavailable")
	}

	commandSink, err := buildSink(cfg, spotify)
	if err != nil {
		return err
	}

	source, err := buildSource(cfg)
	if err != nil {
		return err
	}

	appCfg := app.Config{
		Source:           source,
		Sink:             commandSink,
		Store:            st,
		Gesture:          gesture.Config{Cooldown: cfg.Gesture.Cooldown.Duration},
		PollTimeout:      cfg.Tracking.PollTimeout.Duration,
		PlaybackInterval: cfg.Spotify.PollInterval.Duration,
		QueueInterval:    cfg.Spotify.QueueInterval.Duration,
	}
	srvCfg := server.Config{
		Artwork:         artwork.New(nil, 0),
		StaticDir:       findWebDir(cfg.StaticDir, cfg.DataDir),
		CORSOrigins:     cfg.CORSOrigins,
		DefaultPlaylist: cfg.Spotify.DefaultPlaylist,
	}
	if spotify != nil {
		appCfg.Reader = spotify
		srvCfg.Spotify = spotify
	}

	application := app.New(appCfg)
	srvCfg.App = application
	srv := server.New(srvCfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Start(ctx); err != nil {
		return fmt.Errorf("start pipeline: %w", err)
	}
	defer application.Stop()

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- srv.Run(ctx, cfg.Addr)
	}()

	if cfg.Tray {
		t := tray.New(application.Status())
		application.Subscribe(t.HandleEvent)
		t.OnToggle(application.SetEnabled)
		t.OnOpenDashboard(func() {
			if err := openBrowser(dashboardURL(cfg.Addr)); err != nil {
				logger.Warn("failed to open dashboard", "error", err)
			}
		})
		t.OnQuit(stop)
		go func() {
			<-ctx.Done()
			t.Quit()
		}()
		// The tray must own the main thread on macOS.
		t.Run()
		stop()
	}

	select {
	case err := <-srvErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		if err := <-srvErr; err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	logger.Info("cookify stopped")
	return nil
}

func overrideString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func buildSource(cfg *config.Config) (tracking.Source, error) {
	if cfg.Tracking.Replay != "" {
		src, err := tracking.OpenReplay(cfg.Tracking.Replay, cfg.Tracking.Loop, true)
		if err != nil {
			return nil, err
		}
		log.Info("replaying tracking recording", "path", cfg.Tracking.Replay, "messages", src.Len())
		return src, nil
	}
	return tracking.NewWebSocketSource(tracking.Config{
		URL:         cfg.Tracking.URL,
		PollTimeout: cfg.Tracking.PollTimeout.Duration,
	}), nil
}

func buildSink(cfg *config.Config, spotify *playback.SpotifyClient) (playback.Sink, error) {
	switch cfg.Sink {
	case config.SinkPlugin:
		mgr := plugin.NewManager(cfg.Plugin.Dir)
		if err := mgr.Discover(); err != nil {
			return nil, fmt.Errorf("discover plugins: %w", err)
		}
		if _, err := mgr.Get(cfg.Plugin.Name); err != nil {
			return nil, fmt.Errorf("plugin %q: %w", cfg.Plugin.Name, err)
		}
		return playback.NewPluginSink(mgr, plugin.NewExecutor(plugin.DefaultTimeout), cfg.Plugin.Name), nil
	default:
		if spotify == nil {
			return nil, fmt.Errorf("the spotify sink needs SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET (or use -sink %s)", config.SinkPlugin)
		}
		return spotify, nil
	}
}

// findWebDir returns configured if set, else the first existing dashboard
// build among "web", "../web" and <dataDir>/web.
func findWebDir(configured, dataDir string) string {
	if configured != "" {
		return configured
	}
	for _, p := range []string{"web", "../web", filepath.Join(dataDir, "web")} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}

func dashboardURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/"
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

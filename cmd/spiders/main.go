package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/google/uuid"

	"spiders/application/agent"
	"spiders/application/request"
	"spiders/application/service"
	"spiders/application/state"
	"spiders/config"
	"spiders/internal/terminal"
	"spiders/server"
	"spiders/server/application"
	"spiders/server/domain"
	"spiders/utils"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	closeLog, err := setupLogger(utils.GetEnvDefault("SPIDERS_LOG", "spiders.log"), utils.GetEnvDefault("SPIDERS_LOG_LEVEL", "info"))
	if err != nil {
		return err
	}
	defer closeLog()

	cfg, err := config.Resolve(utils.GetEnvDefault("SPIDERS_CONFIG", ""))
	if err != nil {
		return err
	}
	layout, err := cfg.Layout()
	if err != nil {
		return err
	}
	delays, err := cfg.AgentDelays()
	if err != nil {
		return err
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("terminal: %w", err)
	}
	defer screen.Fini()

	renderer := terminal.NewRenderer(screen)
	spectators := application.NewGameApplication(
		application.WithInput(utils.GetEnvBool("SPIDERS_SPECTATE_INPUT", false)),
	)
	metrics := service.NewInMemoryMetrics()

	session, err := service.NewSession(layout, service.Options{
		Notifier: state.MultiNotifier{renderer, spectators},
		Pacer:    agent.SleepPacer{Delays: delays},
		Metrics:  metrics,
	})
	if err != nil {
		return err
	}
	renderer.Attach(session)
	spectators.Attach(session)

	var srv *server.Server
	if utils.GetEnvBool("SPIDERS_SPECTATE", false) {
		srv = startSpectatorServer(ctx, session, spectators)
	}

	slog.InfoContext(ctx, "session starting", "sessionID", session.ID, "height", layout.Height, "width", layout.Width, "spiders", len(layout.Spiders))
	if err := session.Start(ctx); err != nil {
		return err
	}
	go renderer.Run(ctx)

	events := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			events <- ev
		}
	}()

	playLoop(ctx, session, screen, renderer, events)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := session.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(ctx, "session shutdown failed", "err", err)
	}
	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(ctx, "graceful shutdown failed", "error", err)
			if err := srv.Close(); err != nil {
				slog.ErrorContext(ctx, "forced close failed", "error", err)
			}
		}
	}
	logSummary(ctx, session, metrics)
	return nil
}

// playLoop forwards key presses until the game ends and a key is pressed, or the user quits.
func playLoop(ctx context.Context, session *service.Session, screen tcell.Screen, renderer *terminal.Renderer, events <-chan tcell.Event) {
	done := session.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			slog.InfoContext(ctx, "game over", "won", session.Won(), "killed", session.Killed())
			done = nil
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventResize:
				screen.Sync()
				renderer.Draw()
			case *tcell.EventKey:
				cmd := terminal.Translate(ev)
				if cmd.Kind == terminal.CommandQuit {
					return
				}
				if session.Won() || session.Killed() {
					return
				}
				submit(ctx, session, cmd)
			}
		}
	}
}

func submit(ctx context.Context, session *service.Session, cmd terminal.Command) {
	meta := request.Meta{RequestID: uuid.NewString(), Source: "terminal", OccurredAt: time.Now()}
	var req any
	switch cmd.Kind {
	case terminal.CommandMove:
		req = request.Move{Meta: meta, Direction: cmd.Direction}
	case terminal.CommandFire:
		req = request.Fire{Meta: meta}
	default:
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	if err := session.Submit(ctx, req); err != nil {
		slog.WarnContext(ctx, "input dropped", "requestID", meta.RequestID, "err", err)
	}
}

func startSpectatorServer(ctx context.Context, session *service.Session, app *application.GameApplication) *server.Server {
	addr := utils.GetEnvDefault("ADDR", "localhost")
	port := utils.GetEnvDefault("PORT", "9090")

	pubsub := domain.NewSimplePubSub()
	roomID := domain.RoomID("default")
	room := domain.NewRoom(roomID, pubsub, app)
	go func() {
		if err := room.Run(ctx); err != nil {
			slog.ErrorContext(ctx, "room error", "err", err)
		}
	}()

	status := func() string {
		switch {
		case session.Won():
			return "won"
		case session.Killed():
			return "killed"
		default:
			return "playing"
		}
	}
	s := server.NewServer(fmt.Sprintf("%s:%s", addr, port), server.Route(pubsub, roomID, domain.DefaultEndpointConfig(), status))
	go func() {
		if err := s.Serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("spectator server error: %v", err)
		}
	}()
	slog.InfoContext(ctx, "spectator server listening", "addr", s.Addr())
	return s
}

func setupLogger(path, level string) (func(), error) {
	var lv slog.Level
	if err := lv.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return nil, fmt.Errorf("invalid SPIDERS_LOG_LEVEL %q: %w", level, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: lv})))
	return func() { _ = f.Close() }, nil
}

func logSummary(ctx context.Context, session *service.Session, metrics *service.InMemoryMetrics) {
	counters := metrics.Counters()
	names := make([]string, 0, len(counters))
	for name := range counters {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		slog.InfoContext(ctx, "counter", "name", name, "value", counters[name])
	}
	for _, endpoint := range []string{"move", "fire"} {
		agg := metrics.Latency(endpoint)
		slog.InfoContext(ctx, "latency", "endpoint", endpoint, "count", agg.Count, "mean", agg.Mean(), "max", agg.Max)
	}
	c := metrics.Contention()
	slog.InfoContext(ctx, "grid contention", "count", c.Count, "mean", c.Mean(), "max", c.Max)
	slog.InfoContext(ctx, "session finished", "sessionID", session.ID, "won", session.Won(), "killed", session.Killed())
}

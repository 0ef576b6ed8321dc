package commands

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/colonyops/inbox/internal/core/config"
	"github.com/colonyops/inbox/internal/core/logging"
	"github.com/colonyops/inbox/internal/core/notification"
	"github.com/colonyops/inbox/internal/core/styles"
	"github.com/colonyops/inbox/internal/inbox"
	"github.com/colonyops/inbox/internal/inbox/probe"
	"github.com/colonyops/inbox/internal/store/jsonfile"
	"github.com/colonyops/inbox/pkg/iojson"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
)

type WatchCmd struct {
	flags *Flags
	app   *App

	interval      time.Duration
	probeInterval time.Duration
	jsonOutput    bool
	pprof         string
}

// NewWatchCmd creates a new watch command
func NewWatchCmd(flags *Flags, app *App) *WatchCmd {
	return &WatchCmd{flags: flags, app: app}
}

// Register adds the watch command to the application
func (cmd *WatchCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "watch",
		Usage:     "Stream inbox changes until interrupted",
		UsageText: "inbox watch [--interval 30s] [--probe-interval 1m] [--json]",
		Description: `Prints an event whenever the local cache changes, the unread count changes,
or the inbox switches between remote and local mode.

With the file store, changes written by other inbox processes are picked up
as soon as they land on disk. Other stores are re-read every --interval.

--probe-interval pings the API health endpoint while the inbox is local only
and switches back to the remote API once it answers.`,
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:        "interval",
				Usage:       "how often to refresh the unread count and re-read the store",
				Value:       30 * time.Second,
				Destination: &cmd.interval,
			},
			&cli.DurationFlag{
				Name:        "probe-interval",
				Usage:       "health probe interval while local only (0 disables)",
				Value:       time.Minute,
				Destination: &cmd.probeInterval,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as JSON lines",
				Destination: &cmd.jsonOutput,
			},
			pprofFlag(&cmd.pprof),
		},
		Action: cmd.run,
	})

	return app
}

type watchEvent struct {
	Event       string    `json:"event"`
	Time        time.Time `json:"time"`
	Count       *int      `json:"count,omitempty"`
	UnreadCount *int      `json:"unreadCount,omitempty"`
	From        string    `json:"from,omitempty"`
	To          string    `json:"to,omitempty"`
	Reason      string    `json:"reason,omitempty"`

	mode inbox.Mode
}

// eventPrinter serializes events from listener callbacks and the poll loop.
type eventPrinter struct {
	mu     sync.Mutex
	out    io.Writer
	lw     *iojson.LineWriter
	json   bool
	styled bool
}

func (p *eventPrinter) print(ev watchEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.json {
		if err := p.lw.Write(ev); err != nil {
			log.Error().Err(err).Msg("failed to write watch event")
		}
		return
	}

	ts := paint(p.styled, styles.TimeStyle, ev.Time.Format("15:04:05"))
	switch ev.Event {
	case "mode_changed":
		_, _ = fmt.Fprintf(p.out, "%s mode %s -> %s (%s)\n", ts, ev.From, modeBadge(p.styled, ev.mode), ev.Reason)
	case "cache_changed":
		_, _ = fmt.Fprintf(p.out, "%s cache %d notification(s), %d unread\n", ts, *ev.Count, *ev.UnreadCount)
	case "unread":
		_, _ = fmt.Fprintf(p.out, "%s %s %d unread\n", ts, styles.IconUnread, *ev.UnreadCount)
	}
}

func (cmd *WatchCmd) run(ctx context.Context, c *cli.Command) error {
	if cmd.interval <= 0 {
		return fmt.Errorf("--interval must be positive")
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stopProfiler, err := startProfiler(ctx, cmd.pprof)
	if err != nil {
		return err
	}
	defer stopProfiler()

	svc, err := cmd.app.Service(ctx)
	if err != nil {
		return err
	}

	out := c.Root().Writer
	p := &eventPrinter{
		out:    out,
		lw:     iojson.NewLineWriter(out),
		json:   cmd.jsonOutput,
		styled: isTerminal(out),
	}
	return cmd.watch(ctx, svc, p)
}

func (cmd *WatchCmd) watch(ctx context.Context, svc *inbox.Service, p *eventPrinter) error {
	unsubCache := svc.Subscribe(func(records []notification.Record) {
		count, unread := len(records), 0
		for _, r := range records {
			if !r.IsRead {
				unread++
			}
		}
		p.print(watchEvent{Event: "cache_changed", Time: time.Now(), Count: &count, UnreadCount: &unread})
	})
	defer unsubCache()

	unsubMode := svc.OnModeChange(func(mc inbox.ModeChange) {
		p.print(watchEvent{
			Event:  "mode_changed",
			Time:   time.Now(),
			From:   mc.From.String(),
			To:     mc.To.String(),
			Reason: mc.Reason,
			mode:   mc.To,
		})
	})
	defer unsubMode()

	var wg sync.WaitGroup
	defer wg.Wait()

	if client := cmd.app.Client(); client != nil && cmd.probeInterval > 0 && !cmd.flags.Offline {
		wg.Go(func() { probe.Start(ctx, svc, client, cmd.probeInterval) })
	}

	cfg := cmd.flags.Config
	fileEvents, err := cmd.watchFiles(ctx, cfg)
	if err != nil {
		return err
	}
	if fileEvents != nil {
		// Pick up writes that landed between the cache load and the watch.
		svc.Cache().Reload(ctx)
	}

	lastUnread := -1
	refresh := func() {
		n := svc.UnreadCount(ctx)
		if n != lastUnread {
			lastUnread = n
			p.print(watchEvent{Event: "unread", Time: time.Now(), UnreadCount: &n})
		}
	}
	refresh()

	ticker := time.NewTicker(cmd.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-fileEvents:
			if !ok {
				fileEvents = nil
				continue
			}
			svc.Cache().Reload(ctx)
		case <-ticker.C:
			if fileEvents == nil {
				svc.Cache().Reload(ctx)
			}
			refresh()
		}
	}
}

// watchFiles returns change events for the cache's keys when the file store
// is in use, and nil otherwise.
func (cmd *WatchCmd) watchFiles(ctx context.Context, cfg *config.Config) (<-chan jsonfile.KeyEvent, error) {
	if cfg.Store.Backend != config.BackendFile {
		return nil, nil
	}

	w, err := jsonfile.NewWatcher(cfg.StoreDir(), logging.Component("watcher"))
	if err != nil {
		return nil, fmt.Errorf("watch store: %w", err)
	}
	go func() {
		<-ctx.Done()
		_ = w.Close()
	}()

	return w.Watch(ctx, cfg.Store.Namespace+":*")
}

// Command earthctl observes and steers a running earthsim over its HTTP API.
//
//	earthctl status
//	earthctl events
//	earthctl event <kind> [intensity]
//	earthctl pause | resume | toggle | reset | checkpoint
//	earthctl watch [interval]
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/earthsim/internal/config"
	"github.com/talgya/earthsim/internal/control"
)

const usage = `usage: earthctl <command> [args]

commands:
  status                     show the current planet
  events                     list event kinds
  event <kind> [intensity]   trigger an event (intensity defaults to 1)
  pause | resume | toggle    control the scheduler
  reset                      restore the default planet
  checkpoint                 save the current snapshot on the server
  watch [interval]           print status every interval (default 1s)

environment: EARTHCTL_API_URL, EARTHCTL_ADMIN_KEY, EARTHCTL_TIMEOUT, EARTHCTL_LANG`

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.LoadClient()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	observer := control.NewObserver(cfg.APIURL, cfg.Timeout)
	observer.Lang = cfg.Lang
	actor := control.NewActor(cfg.APIURL, cfg.AdminKey, cfg.Timeout)

	if err := run(ctx, observer, actor, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "earthctl:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, observer *control.Observer, actor *control.Actor, cmd string, args []string) error {
	switch cmd {
	case "status":
		st, err := observer.Status(ctx)
		if err != nil {
			return err
		}
		printStatus(st)
		return nil

	case "events":
		kinds, err := observer.EventKinds(ctx)
		if err != nil {
			return err
		}
		for _, k := range kinds {
			fmt.Printf("%-12s %s\n", k.Kind, k.Label)
		}
		return nil

	case "event":
		if len(args) < 1 {
			return fmt.Errorf("event: kind required")
		}
		var intensity *float64
		if len(args) > 1 {
			v, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("event: bad intensity %q: %w", args[1], err)
			}
			intensity = &v
		}
		res, err := actor.Event(ctx, args[0], intensity)
		if err != nil {
			return err
		}
		if !res.Applied {
			fmt.Printf("unknown event %q, nothing changed\n", args[0])
			return nil
		}
		fmt.Printf("%s x%s\n", res.Transition.Snapshot.LastEventLabel, humanize.Ftoa(res.Transition.Snapshot.LastEventIntensity))
		printChanges(res.Transition.Changes)
		return nil

	case "pause", "resume":
		running, err := actor.SetRunning(ctx, cmd == "resume")
		if err != nil {
			return err
		}
		printRunning(running)
		return nil

	case "toggle":
		running, err := actor.Toggle(ctx)
		if err != nil {
			return err
		}
		printRunning(running)
		return nil

	case "reset":
		if _, err := actor.Reset(ctx); err != nil {
			return err
		}
		fmt.Println("planet reset to defaults")
		return nil

	case "checkpoint":
		res, err := actor.Checkpoint(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%s at tick %s\n", res.Message, humanize.Comma(int64(res.Tick)))
		return nil

	case "watch":
		interval := time.Second
		if len(args) > 0 {
			d, err := time.ParseDuration(args[0])
			if err != nil || d <= 0 {
				return fmt.Errorf("watch: bad interval %q", args[0])
			}
			interval = d
		}
		return watch(ctx, observer, interval)

	case "help", "-h", "--help":
		fmt.Println(usage)
		return nil

	default:
		return fmt.Errorf("unknown command %q\n\n%s", cmd, usage)
	}
}

// watch prints one status line per interval until ctx is cancelled.
func watch(ctx context.Context, observer *control.Observer, interval time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	err := observer.WaitReady(waitCtx)
	cancel()
	if err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		st, err := observer.Status(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		state := "running"
		if !st.Running {
			state = "paused"
		}
		fmt.Printf("tick %-8s %-7s pop %-10s veg %-6s water %-6s deaths %s\n",
			humanize.Comma(int64(st.Tick)), state,
			st.Display.Population, st.Display.Vegetation, st.Display.Water, st.Display.Deaths)

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func printStatus(st *control.Status) {
	state := "running"
	if !st.Running {
		state = "paused"
	}
	fmt.Printf("%s  tick %s  %s (every %dms)\n", st.Name, humanize.Comma(int64(st.Tick)), state, st.IntervalMS)
	fmt.Printf("  population  %s\n", st.Display.Population)
	fmt.Printf("  deaths      %s\n", st.Display.Deaths)
	fmt.Printf("  vegetation  %s\n", st.Display.Vegetation)
	fmt.Printf("  water       %s\n", st.Display.Water)
	fmt.Printf("  births x%.3f  deaths x%.3f\n", st.Environment.BirthMultiplier, st.Environment.DeathMultiplier)
	if st.Display.LastEvent != "" {
		fmt.Printf("  last event  %s x%s\n", st.Display.LastEvent, humanize.Ftoa(st.Snapshot.LastEventIntensity))
	}
	if len(st.DisplayChanges) > 0 {
		fmt.Println("  changes:")
		fields := make([]string, 0, len(st.DisplayChanges))
		for f := range st.DisplayChanges {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, f := range fields {
			fmt.Printf("    %-10s %s\n", f, st.DisplayChanges[f])
		}
	}
}

func printChanges(changes map[string]float64) {
	fields := make([]string, 0, len(changes))
	for f := range changes {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		sign := ""
		if changes[f] > 0 {
			sign = "+"
		}
		fmt.Printf("  %-10s %s%s\n", f, sign, humanize.CommafWithDigits(changes[f], 2))
	}
}

func printRunning(running bool) {
	if running {
		fmt.Println("simulation running")
		return
	}
	fmt.Println("simulation paused")
}

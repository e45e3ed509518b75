package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/docopt/docopt-go"
	"github.com/joho/godotenv"
	"github.com/mmuslimabdulj/goat-canvas/internal/canvas"
	"github.com/mmuslimabdulj/goat-canvas/internal/config"
	"github.com/mmuslimabdulj/goat-canvas/internal/delivery/ws"
	"github.com/mmuslimabdulj/goat-canvas/internal/discovery"
	"github.com/mmuslimabdulj/goat-canvas/internal/domain"
	"github.com/mmuslimabdulj/goat-canvas/internal/export"
	"github.com/mmuslimabdulj/goat-canvas/internal/presence"
	"github.com/mmuslimabdulj/goat-canvas/internal/syncclient"
)

const CanvasCtlVersion = "0.1.0"

const usage = `Headless goat-canvas client.

Without --url the relay is looked up on the local network over mDNS.

Usage:
    canvasctl watch  [options] [--name=<name>]
    canvasctl rect   [options] --x=<x> --y=<y>
    canvasctl text   [options] --x=<x> --y=<y> <text>
    canvasctl delete [options] --id=<id>
    canvasctl clear  [options]
    canvasctl export [options] --out=<file> [--font=<ttf>]
    canvasctl -h | --help
    canvasctl --version

Options:
    -h --help         Show this screen.
    --version         Show version.
    --url=<url>       Relay address, e.g. http://localhost:8080.
    --room=<code>     Room code [default: lobby].
    --wait=<wait>     How long to wait for a peer's snapshot [default: 2s].
    --name=<name>     Display name shown to other participants.
    --x=<x>           Canvas x coordinate.
    --y=<y>           Canvas y coordinate.
    --id=<id>         Entity id.
    --out=<file>      PDF output path.
    --font=<ttf>      TrueType font for text labels, needed for non-Latin text.`

var (
	Out = log.New(os.Stdout, "", 0)
	Err = log.New(os.Stderr, "", log.Ltime)
)

func main() {
	_ = godotenv.Load()
	config.AppConfig = config.LoadFromEnv()

	opts, err := docopt.ParseArgs(usage, os.Args[1:], CanvasCtlVersion)
	if err != nil {
		Err.Fatal(err)
	}

	cmd, err := parseCommand(opts)
	if err != nil {
		Err.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cmd); err != nil {
		Err.Fatal(err)
	}
}

// command is the parsed form of one canvasctl invocation
type command struct {
	name string
	url  string
	room string
	wait time.Duration
	user string
	x, y float64
	id   string
	text string
	out  string
	font string
}

var commandNames = []string{"watch", "rect", "text", "delete", "clear", "export"}

func parseCommand(opts docopt.Opts) (command, error) {
	var cmd command
	for _, name := range commandNames {
		if set, _ := opts.Bool(name); set {
			cmd.name = name
			break
		}
	}
	if cmd.name == "" {
		return cmd, errors.New("no command given")
	}

	cmd.url, _ = opts.String("--url")
	cmd.room, _ = opts.String("--room")
	cmd.user, _ = opts.String("--name")
	cmd.id, _ = opts.String("--id")
	cmd.text, _ = opts.String("<text>")
	cmd.out, _ = opts.String("--out")
	cmd.font, _ = opts.String("--font")

	waitStr, _ := opts.String("--wait")
	wait, err := time.ParseDuration(waitStr)
	if err != nil {
		return cmd, fmt.Errorf("bad --wait: %w", err)
	}
	cmd.wait = wait

	if cmd.name == "rect" || cmd.name == "text" {
		if cmd.x, err = parseCoord(opts, "--x"); err != nil {
			return cmd, err
		}
		if cmd.y, err = parseCoord(opts, "--y"); err != nil {
			return cmd, err
		}
	}
	return cmd, nil
}

func parseCoord(opts docopt.Opts, key string) (float64, error) {
	raw, _ := opts.String(key)
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("bad %s: %q is not a number", key, raw)
	}
	return v, nil
}

func run(ctx context.Context, cmd command) error {
	s, err := connect(ctx, cmd.url, cmd.room, cmd.wait)
	if err != nil {
		return err
	}
	defer s.client.Close()

	store := s.client.Store()
	switch cmd.name {
	case "watch":
		return watch(ctx, s, cmd.user)

	case "rect":
		rect := store.AddRect(cmd.x, cmd.y)
		Out.Printf("rect %s", rect.ID)

	case "text":
		label, ok := store.PlaceText(cmd.x, cmd.y, cmd.text)
		if !ok {
			return errors.New("empty text, nothing placed")
		}
		Out.Printf("text %s", label.ID)

	case "delete":
		store.Select(cmd.id)
		if store.DeleteSelected() == 0 {
			return fmt.Errorf("no entity with id %s", cmd.id)
		}
		Out.Printf("deleted %s", cmd.id)

	case "clear":
		store.ClearAll()
		Out.Print("cleared")

	case "export":
		return exportPDF(store.Snapshot(), cmd.out, cmd.font)
	}
	return nil
}

type session struct {
	client *syncclient.Client
	errs   chan error
}

// connect dials the relay, starts the receive loop and waits up to wait for
// the bootstrap snapshot. The first client in a room gets none and carries
// on with an empty canvas.
func connect(ctx context.Context, base, room string, wait time.Duration) (*session, error) {
	if base == "" {
		found, err := discovery.Browse(ctx, 3*time.Second)
		if err != nil {
			return nil, fmt.Errorf("no --url given and %w", err)
		}
		Err.Printf("found relay at %s", found)
		base = found
	}

	conn, err := ws.Dial(ctx, base, room)
	if err != nil {
		return nil, err
	}

	client := syncclient.New(canvas.NewStore())
	if err := client.Connect(conn); err != nil {
		conn.Close()
		return nil, err
	}

	s := &session{client: client, errs: make(chan error, 1)}
	go func() {
		s.errs <- client.Run(ctx)
	}()

	waitCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	if err := client.WaitSynced(waitCtx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		Err.Printf("no peer answered within %v, starting from an empty canvas", wait)
	}
	return s, nil
}

func watch(ctx context.Context, s *session, name string) error {
	var opts []presence.Option
	if ttl := config.AppConfig.PresenceTTL; ttl > 0 {
		opts = append(opts, presence.WithTTL(ttl))
	}
	if name != "" {
		opts = append(opts, presence.WithName(name))
	}
	tracker := presence.NewTracker(s.client.Store(), domain.NewID(), opts...)
	if name != "" {
		tracker.Move(0, 0)
	}

	updates := make(chan domain.Snapshot, 16)
	s.client.Store().Subscribe(func(snap domain.Snapshot, origin canvas.Origin) {
		if origin == canvas.OriginRemote {
			select {
			case updates <- snap:
			default:
			}
		}
	})
	printSummary(s.client.Store().Snapshot(), tracker)

	sweep := time.NewTicker(time.Second)
	defer sweep.Stop()
	for {
		select {
		case snap := <-updates:
			printSummary(snap, tracker)
		case <-sweep.C:
			if n := tracker.Sweep(); n > 0 {
				Err.Printf("pruned %d departed cursors", n)
			}
		case err := <-s.errs:
			return err
		case <-ctx.Done():
			return nil
		}
	}
}

func printSummary(snap domain.Snapshot, tracker *presence.Tracker) {
	names := make([]string, 0)
	for _, c := range tracker.Visible() {
		names = append(names, fmt.Sprintf("%s@(%.0f,%.0f)", c.UserName, c.X, c.Y))
	}
	Out.Printf("shapes=%d strokes=%d texts=%d cursors=[%s]",
		len(snap.Shapes), len(snap.Strokes), len(snap.Texts), strings.Join(names, " "))
}

func exportPDF(snap domain.Snapshot, path, font string) error {
	var opts []export.Option
	if font != "" {
		opts = append(opts, export.WithUTF8Font(font))
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export.WritePDF(f, snap, opts...); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	Out.Printf("wrote %s", path)
	return nil
}

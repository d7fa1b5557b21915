/*
Package main is a headless Inkwire board client for the command line.

It can discover relays on the local network, create boards, inspect board
occupancy, and join a board as a scripted participant that scribbles random
strokes and exports the final board to PDF. It exists for demos and for
driving a relay end to end without a UI.
*/
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	mathrand "math/rand"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/docopt/docopt-go"

	"inkwire/internal/app/board"
	"inkwire/internal/app/export"
	"inkwire/internal/app/transport"
	"inkwire/internal/pkg/discovery"
	"inkwire/internal/pkg/logx"
	"inkwire/internal/pkg/randx"
	"inkwire/internal/protocol"
)

const boardsimVersion = "0.1.0"

func main() {
	usage := `Inkwire board simulator.

Usage:
    boardsim discover [--timeout=<duration>]
    boardsim create [--relay=<url>] [--max-users=<n>]
    boardsim status --board=<code> [--relay=<url>]
    boardsim join [--board=<code>] [--relay=<url>] [--name=<name>]
        [--scribble=<count>] [--watch=<duration>] [--export=<path>]

Options:
    -h --help             Show this screen.
    --version             Show version.
    --relay=<url>         Relay base URL. Defaults to the first relay found
                          on the local network via mDNS.
    --board=<code>        Six character board code [default: LOBBY0].
    --max-users=<n>       Cap the number of participants on the new board.
    --name=<name>         Display name shown to other participants.
    --timeout=<duration>  How long to browse for relays [default: 2s].
    --scribble=<count>    Number of random strokes to draw [default: 0].
    --watch=<duration>    How long to stay on the board after scribbling
                          [default: 5s].
    --export=<path>       Write the final board to this PDF file on exit.`

	opts, err := docopt.ParseArgs(usage, os.Args[1:], boardsimVersion)
	if err != nil {
		panic(err)
	}

	logx.InitGlobalLogger(true)

	var runErr error
	if discover_, _ := opts.Bool("discover"); discover_ {
		runErr = runDiscover(opts)
	} else if create_, _ := opts.Bool("create"); create_ {
		runErr = runCreate(opts)
	} else if status_, _ := opts.Bool("status"); status_ {
		runErr = runStatus(opts)
	} else if join_, _ := opts.Bool("join"); join_ {
		runErr = runJoin(opts)
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "boardsim: %v\n", runErr)
		os.Exit(1)
	}
}

// runDiscover lists every relay answering on the local network.
func runDiscover(opts docopt.Opts) error {
	timeout, err := durationOpt(opts, "--timeout")
	if err != nil {
		return err
	}

	relays, err := discovery.Browse(timeout)
	if err != nil {
		return err
	}

	if len(relays) == 0 {
		fmt.Println("No relays found.")
		return nil
	}

	for _, relay := range relays {
		fmt.Printf("%-24s %s\n", relay.Name, relay.URL())
	}
	return nil
}

// runCreate asks a relay for a fresh board and prints its code.
func runCreate(opts docopt.Opts) error {
	relayURL, err := resolveRelay(opts)
	if err != nil {
		return err
	}

	var body io.Reader
	if raw, _ := opts.String("--max-users"); raw != "" {
		maxUsers, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid --max-users: %w", err)
		}
		payload, err := json.Marshal(map[string]int{"maxUsers": maxUsers})
		if err != nil {
			return fmt.Errorf("encode create request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	var data struct {
		BoardCode string `json:"boardCode"`
	}
	if err := callRelay(http.MethodPost, relayURL, body, &data, "api", "board", "create"); err != nil {
		return err
	}

	fmt.Printf("Board created: %s\n", data.BoardCode)
	fmt.Printf("Join it with: boardsim join --board=%s --relay=%s\n", data.BoardCode, relayURL)
	return nil
}

// runStatus prints occupancy and the member roster of a board.
func runStatus(opts docopt.Opts) error {
	relayURL, err := resolveRelay(opts)
	if err != nil {
		return err
	}

	boardCode, _ := opts.String("--board")

	var data struct {
		BoardCode string                  `json:"boardCode"`
		Users     int                     `json:"users"`
		MaxUsers  int                     `json:"maxUsers"`
		Members   []protocol.PresenceMeta `json:"members"`
	}
	if err := callRelay(http.MethodGet, relayURL, nil, &data, "api", "board", boardCode); err != nil {
		return err
	}

	fmt.Printf("Board %s: %d/%d users\n", data.BoardCode, data.Users, data.MaxUsers)

	host, hasHost := board.ElectHost(data.Members)
	for _, member := range data.Members {
		marker := " "
		if hasHost && member.UserID == host.UserID {
			marker = "*"
		}
		joined := time.UnixMilli(member.JoinedAt).Format(time.TimeOnly)
		fmt.Printf("  %s %-20s joined %s (%s)\n", marker, member.DisplayName, joined, member.UserID)
	}
	return nil
}

// runJoin connects to a board, optionally scribbles on it, stays for the
// watch window, and exports the final state on the way out.
func runJoin(opts docopt.Opts) error {
	relayURL, err := resolveRelay(opts)
	if err != nil {
		return err
	}

	boardCode, _ := opts.String("--board")
	displayName, _ := opts.String("--name")
	exportPath, _ := opts.String("--export")

	scribbles, err := opts.Int("--scribble")
	if err != nil {
		return fmt.Errorf("invalid --scribble: %w", err)
	}

	watch, err := durationOpt(opts, "--watch")
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The transport needs the session id at dial time, so it is minted here
	// and handed to the engine.
	userID := randx.SessionID()

	conn, err := transport.Dial(ctx, relayURL, boardCode, userID)
	if err != nil {
		return err
	}
	defer conn.Close()

	simLogger := logx.Logger().With().Str("component", "boardsim").Logger()

	engine := board.NewEngine(conn, board.Options{
		UserID:      userID,
		DisplayName: displayName,
		Hooks: board.Hooks{
			StrokeAdded: func(s board.Stroke) {
				simLogger.Info().
					Str("stroke_id", s.ID).
					Str("author_id", s.AuthorID).
					Int("points", len(s.Points)).
					Msg("Stroke added")
			},
			BoardReplaced: func(strokes []board.Stroke) {
				simLogger.Info().Int("strokes", len(strokes)).Msg("Board state replaced by host")
			},
			PresenceChanged: func(peers []protocol.PresenceMeta) {
				names := make([]string, 0, len(peers))
				for _, p := range peers {
					names = append(names, p.DisplayName)
				}
				simLogger.Info().Strs("members", names).Msg("Presence changed")
			},
			CursorMoved: func(c board.Cursor) {
				simLogger.Debug().
					Str("user_id", c.UserID).
					Float64("x", c.X).
					Float64("y", c.Y).
					Msg("Peer cursor moved")
			},
		},
	})

	engineDone := make(chan struct{})
	go func() {
		defer close(engineDone)
		engine.Run(ctx)
	}()

	fmt.Printf("Joined board %s as %s.\n", boardCode, engine.User().DisplayName)

	for i := 0; i < scribbles; i++ {
		if ctx.Err() != nil {
			break
		}
		scribble(engine)
	}

	select {
	case <-ctx.Done():
	case <-time.After(watch):
	}

	strokes := engine.Snapshot()

	conn.Close()
	<-engineDone

	fmt.Printf("Left board %s with %d strokes.\n", boardCode, len(strokes))

	if exportPath != "" {
		if err := export.ExportPDF(exportPath, strokes); err != nil {
			return err
		}
		fmt.Printf("Exported board to %s.\n", exportPath)
	}
	return nil
}

// scribble drags the pointer along a random walk, pacing the moves so the
// engine sees a realistic pointer cadence.
func scribble(engine *board.Engine) {
	x := 100 + mathrand.Float64()*(board.CanvasWidth-200)
	y := 100 + mathrand.Float64()*(board.CanvasHeight-200)

	engine.PointerDown(x, y)

	steps := 8 + mathrand.Intn(16)
	for i := 0; i < steps; i++ {
		x = clamp(x+(mathrand.Float64()-0.5)*80, 0, board.CanvasWidth)
		y = clamp(y+(mathrand.Float64()-0.5)*80, 0, board.CanvasHeight)
		engine.PointerMove(x, y)
		time.Sleep(time.Duration(10+mathrand.Intn(10)) * time.Millisecond)
	}

	engine.PointerUp()
	time.Sleep(time.Duration(100+mathrand.Intn(200)) * time.Millisecond)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// resolveRelay returns the --relay flag, falling back to the first relay
// discovered on the local network.
func resolveRelay(opts docopt.Opts) (string, error) {
	if relayURL, _ := opts.String("--relay"); relayURL != "" {
		return relayURL, nil
	}

	timeout, err := durationOpt(opts, "--timeout")
	if err != nil {
		timeout = discovery.DefaultBrowseTimeout
	}

	relays, err := discovery.Browse(timeout)
	if err != nil {
		return "", fmt.Errorf("relay discovery failed: %w", err)
	}
	if len(relays) == 0 {
		return "", fmt.Errorf("no relay found on the local network, pass --relay")
	}

	logx.Info("Using discovered relay.", "name", relays[0].Name, "url", relays[0].URL())
	return relays[0].URL(), nil
}

// durationOpt parses a duration-valued option like --watch=30s.
func durationOpt(opts docopt.Opts, name string) (time.Duration, error) {
	raw, _ := opts.String(name)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return d, nil
}

// callRelay performs one JSON API request against the relay and decodes the
// data payload of the standard response envelope into data.
func callRelay(method, relayURL string, body io.Reader, data any, pathParts ...string) error {
	callURL, err := url.JoinPath(relayURL, pathParts...)
	if err != nil {
		return fmt.Errorf("build request url: %w", err)
	}

	req, err := http.NewRequest(method, callURL, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := &http.Client{Timeout: 10 * time.Second}
	res, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("call relay: %w", err)
	}
	defer res.Body.Close()

	var envelope struct {
		Code    int             `json:"code"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode relay response: %w", err)
	}

	if envelope.Code != 0 {
		return fmt.Errorf("relay error %d: %s", envelope.Code, envelope.Message)
	}

	if data != nil && envelope.Data != nil {
		if err := json.Unmarshal(envelope.Data, data); err != nil {
			return fmt.Errorf("decode relay response data: %w", err)
		}
	}
	return nil
}

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"rehab-service/internal/apiclient"
	"rehab-service/internal/board"
	"rehab-service/internal/liveboard"
	"rehab-service/internal/livesync"
	"rehab-service/internal/session"
	"rehab-service/pkg/logger"
	"rehab-service/pkg/types"

	"go.uber.org/zap"
)

const helpText = `commands:
  login <name>            sign in (debug servers only)
  logout | whoami
  show                    print the board
  place <id>...           toggle players in the staging group
  pick <id>               select a player for the next slot click
  slot <1-4>              click a staging slot (a1 a2 b1 b2)
  auto [fairness|peak]    fill open slots
  clear                   empty the staging group
  commit <court>          start the staged match on a court
  finish <court> [A|B]    end the match on a court
  court add [label] | court rm <label>
  checkin [playerId]      check yourself or a player in
  refresh
  quit`

type console struct {
	mu       sync.Mutex
	w        io.Writer
	sessions *session.Manager
	client   *apiclient.Client
	ctrl     *liveboard.Controller
	view     func() liveboard.View
	now      func() time.Time
}

func newConsole(w io.Writer, sessions *session.Manager, client *apiclient.Client) *console {
	return &console{w: w, sessions: sessions, client: client, now: time.Now}
}

func (c *console) attach(ctrl *liveboard.Controller) {
	c.ctrl = ctrl
	c.view = ctrl.View
}

func (c *console) printf(format string, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, format, args...)
}

func (c *console) pushState(s livesync.State) {
	c.printf("-- live updates %s\n", s)
}

// redraw prints the board after every applied refetch.
func (c *console) redraw(v liveboard.View) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w)
	renderView(c.w, v, c.now())
	fmt.Fprint(c.w, "> ")
}

// runClock rewrites the prompt line with the elapsed time of every occupied
// court once a second.
func (c *console) runClock(ctx context.Context) {
	board.Tick(ctx, time.Second, c.tickClock)
}

func (c *console) tickClock(now time.Time) {
	line := clockLine(c.view(), now)
	if line == "" {
		return
	}
	c.printf("\r\033[K%s > ", line)
}

// Serve reads commands until quit, EOF or ctx is done.
func (c *console) Serve(ctx context.Context, r io.Reader) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			lines <- sc.Text()
		}
		scanErr <- sc.Err()
	}()

	c.printf("%s\n> ", helpText)
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-scanErr:
			return err
		case line := <-lines:
			quit, err := c.exec(ctx, line)
			if err != nil {
				c.printf("error: %s\n", describe(err))
			}
			if quit {
				return nil
			}
			c.printf("> ")
		}
	}
}

func (c *console) exec(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "quit", "exit":
		return true, nil
	case "help":
		c.printf("%s\n", helpText)
	case "login":
		if len(args) == 0 {
			return false, errUsage("login <name>")
		}
		res, err := c.client.DevLogin(ctx, strings.Join(args, " "))
		if err != nil {
			return false, err
		}
		if err := c.sessions.Login(*res); err != nil {
			return false, err
		}
		c.printf("signed in as %s\n", res.User.DisplayName)
		return false, c.ctrl.Refresh(ctx)
	case "logout":
		return false, c.sessions.Logout()
	case "whoami":
		if u, ok := c.sessions.User(); ok {
			c.printf("%s (#%d)\n", u.DisplayName, u.ID)
		} else {
			c.printf("not signed in\n")
		}
	case "show":
		c.show()
	case "place":
		if len(args) == 0 {
			return false, errUsage("place <id>...")
		}
		for _, a := range args {
			id, err := parseID(a)
			if err != nil {
				return false, err
			}
			if _, err := c.ctrl.Place(id); err != nil {
				return false, err
			}
		}
		c.show()
	case "pick":
		if len(args) != 1 {
			return false, errUsage("pick <id>")
		}
		id, err := parseID(args[0])
		if err != nil {
			return false, err
		}
		return false, c.ctrl.Pick(id)
	case "slot":
		if len(args) != 1 {
			return false, errUsage("slot <1-4>")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return false, errUsage("slot <1-4>")
		}
		if err := c.ctrl.SlotClick(n - 1); err != nil {
			return false, err
		}
		c.show()
	case "auto":
		if len(args) > 0 {
			s, err := board.ParseStrategy(args[0])
			if err != nil {
				return false, err
			}
			c.ctrl.SetStrategy(s)
		}
		if _, err := c.ctrl.AutoFill(); err != nil {
			return false, err
		}
		c.show()
	case "clear":
		c.ctrl.Clear()
	case "commit":
		if len(args) != 1 {
			return false, errUsage("commit <court>")
		}
		m, err := c.ctrl.Commit(ctx, args[0])
		if err != nil {
			return false, err
		}
		c.printf("match #%d started on court %s\n", m.ID, m.CourtNumber)
		c.show()
	case "finish":
		if len(args) == 0 || len(args) > 2 {
			return false, errUsage("finish <court> [A|B]")
		}
		winner := ""
		if len(args) == 2 {
			winner = strings.ToUpper(args[1])
		}
		if err := c.ctrl.Finish(ctx, args[0], winner); err != nil {
			return false, err
		}
		c.show()
	case "court":
		return false, c.court(args)
	case "checkin":
		var id int64
		if len(args) == 1 {
			var err error
			if id, err = parseID(args[0]); err != nil {
				return false, err
			}
		}
		if err := c.ctrl.CheckIn(ctx, id); err != nil {
			return false, err
		}
		c.printf("checked in\n")
	case "refresh":
		if err := c.ctrl.Refresh(ctx); err != nil {
			return false, err
		}
		c.show()
	default:
		return false, fmt.Errorf("unknown command %q, try help", cmd)
	}
	return false, nil
}

func (c *console) court(args []string) error {
	if len(args) == 0 {
		return errUsage("court add [label] | court rm <label>")
	}
	switch args[0] {
	case "add":
		label := ""
		if len(args) > 1 {
			label = args[1]
		}
		added, err := c.ctrl.AddCourt(label)
		if err != nil {
			return err
		}
		c.printf("court %s added\n", added)
	case "rm", "remove":
		if len(args) != 2 {
			return errUsage("court rm <label>")
		}
		return c.ctrl.RemoveCourt(args[1])
	default:
		return errUsage("court add [label] | court rm <label>")
	}
	return nil
}

func (c *console) show() {
	v := c.view()
	c.mu.Lock()
	defer c.mu.Unlock()
	renderView(c.w, v, c.now())
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(s, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid player id %q", s)
	}
	return id, nil
}

func errUsage(usage string) error {
	return fmt.Errorf("usage: %s", usage)
}

// describe prefers the server's message for rejected calls.
func describe(err error) string {
	var rej *apiclient.RejectedError
	if errors.As(err, &rej) {
		return rej.Message
	}
	if errors.Is(err, apiclient.ErrTransport) {
		logger.Log.Warn("request failed", zap.Error(err))
		return "server unreachable, try again"
	}
	return err.Error()
}

// clockLine is empty when no court is occupied.
func clockLine(v liveboard.View, now time.Time) string {
	var parts []string
	for _, ct := range v.Courts {
		if ct.Occupied() {
			parts = append(parts, fmt.Sprintf("court %s %s", ct.Label, board.Elapsed(ct.Match.StartTime, now)))
		}
	}
	return strings.Join(parts, " | ")
}

var slotNames = [board.SlotCount]string{"a1", "a2", "b1", "b2"}

func renderView(w io.Writer, v liveboard.View, now time.Time) {
	if !v.Loaded {
		fmt.Fprintln(w, "board not loaded yet")
		return
	}
	name := func(id int64) string {
		if id == 0 {
			return "-"
		}
		if p, ok := v.Player(id); ok {
			return p.Name
		}
		return fmt.Sprintf("#%d", id)
	}

	fmt.Fprintf(w, "%s @ %s  [live updates %s]\n", v.Game.Title, v.Game.Location, v.Push)

	fmt.Fprintln(w, "Courts")
	for _, ct := range v.Courts {
		if !ct.Occupied() {
			fmt.Fprintf(w, "  %-4s free\n", ct.Label)
			continue
		}
		l := ct.Match.Players
		fmt.Fprintf(w, "  %-4s %s / %s  vs  %s / %s  %s\n", ct.Label,
			name(l.A1), name(l.A2), name(l.B1), name(l.B2),
			board.Elapsed(ct.Match.StartTime, now))
	}

	fmt.Fprint(w, "Staging")
	for i, id := range v.Staging {
		mark := ""
		if v.Swapping && v.SwapFrom == i {
			mark = "*"
		}
		fmt.Fprintf(w, "  %s:%s%s", slotNames[i], name(id), mark)
	}
	if v.Pending != 0 {
		fmt.Fprintf(w, "  (picked %s)", name(v.Pending))
	}
	fmt.Fprintln(w)

	pools := []struct {
		title  string
		status types.PlayerStatus
	}{
		{"Idle", types.PlayerIdle},
		{"Playing", types.PlayerPlaying},
		{"Waiting check-in", types.PlayerWaitingCheckin},
	}
	for _, pool := range pools {
		players := v.Pool(pool.status)
		fmt.Fprintf(w, "%s (%d)\n", pool.title, len(players))
		for _, p := range players {
			me := ""
			if v.MyPlayerID != nil && *v.MyPlayerID == p.ID {
				me = " (you)"
			}
			fmt.Fprintf(w, "  #%-3d %-12s L%d  %d games  %d wins%s\n", p.ID, p.Name, p.Level, p.GamesPlayed, p.Wins, me)
		}
	}
}

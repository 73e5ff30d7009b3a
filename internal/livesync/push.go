package livesync

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"
	"time"

	"rehab-service/pkg/logger"
	"rehab-service/pkg/types"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	}
	return "disconnected"
}

// Conn is the part of a websocket connection the push channel uses.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteJSON(v interface{}) error
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context, rawURL string) (Conn, error)
}

type gorillaDialer struct {
	d *websocket.Dialer
}

// NewDialer dials with gorilla/websocket.
func NewDialer(handshakeTimeout time.Duration) Dialer {
	return gorillaDialer{d: &websocket.Dialer{HandshakeTimeout: handshakeTimeout}}
}

func (g gorillaDialer) Dial(ctx context.Context, rawURL string) (Conn, error) {
	conn, _, err := g.d.DialContext(ctx, rawURL, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

type PushConfig struct {
	URL     string
	GameID  int64
	Token   func() string
	Dialer  Dialer
	Backoff Backoff
	// OnRefresh runs once per refresh frame for the game.
	OnRefresh func()
	// OnState runs on every state change.
	OnState func(State)
}

// PushChannel keeps a websocket joined to one game's room and reconnects
// with exponential backoff when it drops.
type PushChannel struct {
	cfg     PushConfig
	backoff Backoff

	mu    sync.Mutex
	state State
}

func NewPushChannel(cfg PushConfig) *PushChannel {
	if cfg.Dialer == nil {
		cfg.Dialer = NewDialer(10 * time.Second)
	}
	return &PushChannel{cfg: cfg, backoff: cfg.Backoff}
}

func (p *PushChannel) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *PushChannel) setState(s State) {
	p.mu.Lock()
	changed := p.state != s
	p.state = s
	p.mu.Unlock()
	if changed && p.cfg.OnState != nil {
		p.cfg.OnState(s)
	}
}

// Run connects, listens and reconnects until ctx is done.
func (p *PushChannel) Run(ctx context.Context) {
	log := logger.Named("push").With(zap.Int64("gameID", p.cfg.GameID))
	defer p.setState(Disconnected)

	for {
		if ctx.Err() != nil {
			return
		}

		p.setState(Connecting)
		conn, err := p.cfg.Dialer.Dial(ctx, p.endpoint())
		if err == nil {
			err = conn.WriteJSON(types.WSMessage{Type: types.WSJoin, GameID: p.cfg.GameID})
			if err != nil {
				conn.Close()
			}
		}
		if err == nil {
			p.setState(Connected)
			p.backoff.Reset()
			log.Info("push connected")
			err = p.listen(ctx, conn)
		}
		if ctx.Err() != nil {
			return
		}
		p.setState(Disconnected)

		delay := p.backoff.Next()
		log.Warn("push disconnected, retrying", zap.Error(err), zap.Duration("delay", delay))
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (p *PushChannel) listen(ctx context.Context, conn Conn) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}
		conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var msg types.WSMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		if msg.Type != types.WSRefresh {
			continue
		}
		if msg.GameID != 0 && msg.GameID != p.cfg.GameID {
			continue
		}
		if p.cfg.OnRefresh != nil {
			p.cfg.OnRefresh()
		}
	}
}

func (p *PushChannel) endpoint() string {
	u, err := url.Parse(p.cfg.URL)
	if err != nil {
		return p.cfg.URL
	}
	if p.cfg.Token == nil {
		return u.String()
	}
	if tok := p.cfg.Token(); tok != "" {
		q := u.Query()
		q.Set("token", tok)
		u.RawQuery = q.Encode()
	}
	return u.String()
}

package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"sync"
	"time"

	"StockHolo/internal/domain/models"
	drepo "StockHolo/internal/domain/repository"
	applogger "StockHolo/pkg/logger"

	"github.com/gorilla/websocket"
)

const DefaultWebSocketURL = "wss://ws.finnhub.io"

// Stream implements a MarketStream backed by the Finnhub trade WebSocket.
type Stream struct {
	apiKey         string
	websocketURL   string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	logger         *applogger.Logger

	mu         sync.Mutex
	conn       *websocket.Conn
	connected  bool
	subscribed map[string]struct{}
}

// NewStream creates a Finnhub MarketStream. symbols are subscribed on Connect.
func NewStream(apiKey, websocketURL string, symbols []string, reconnectDelay, pingInterval time.Duration, logger *applogger.Logger) *Stream {
	if websocketURL == "" {
		websocketURL = DefaultWebSocketURL
	}
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	if logger == nil {
		logger = applogger.Nop()
	}
	s := &Stream{
		apiKey:         apiKey,
		websocketURL:   websocketURL,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		logger:         logger.With("finnhub_stream"),
		subscribed:     make(map[string]struct{}),
	}
	for _, sym := range symbols {
		if n := models.NormalizeSymbol(sym); n != "" {
			s.subscribed[n] = struct{}{}
		}
	}
	return s
}

var _ drepo.MarketStream = (*Stream)(nil)

// Connect dials the socket and replays subscriptions.
func (s *Stream) Connect(ctx context.Context) error {
	u, err := url.Parse(s.websocketURL)
	if err != nil {
		return fmt.Errorf("finnhub stream url: %w", err)
	}
	q := u.Query()
	q.Set("token", s.apiKey)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("%w: finnhub connect: %v", models.ErrDataSourceUnavailable, err)
	}

	s.mu.Lock()
	s.conn = conn
	s.connected = true
	symbols := s.symbolsLocked()
	s.mu.Unlock()

	s.logger.Info("connected", applogger.Int("symbols", len(symbols)))
	return s.send("subscribe", symbols...)
}

// Subscribe adds symbols. While disconnected they are remembered for Connect.
func (s *Stream) Subscribe(ctx context.Context, symbols ...string) error {
	add := make([]string, 0, len(symbols))
	s.mu.Lock()
	for _, sym := range symbols {
		n := models.NormalizeSymbol(sym)
		if n == "" {
			continue
		}
		if _, ok := s.subscribed[n]; ok {
			continue
		}
		s.subscribed[n] = struct{}{}
		add = append(add, n)
	}
	connected := s.connected
	s.mu.Unlock()

	if !connected {
		return nil
	}
	return s.send("subscribe", add...)
}

// Unsubscribe drops symbols from the stream.
func (s *Stream) Unsubscribe(ctx context.Context, symbols ...string) error {
	drop := make([]string, 0, len(symbols))
	s.mu.Lock()
	for _, sym := range symbols {
		n := models.NormalizeSymbol(sym)
		if _, ok := s.subscribed[n]; ok {
			delete(s.subscribed, n)
			drop = append(drop, n)
		}
	}
	connected := s.connected
	s.mu.Unlock()

	if !connected {
		return nil
	}
	return s.send("unsubscribe", drop...)
}

// Symbols returns the current subscription set, sorted.
func (s *Stream) Symbols() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.symbolsLocked()
}

func (s *Stream) symbolsLocked() []string {
	out := make([]string, 0, len(s.subscribed))
	for sym := range s.subscribed {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

func (s *Stream) send(kind string, symbols ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil || !s.connected {
		return fmt.Errorf("%w: finnhub not connected", models.ErrDataSourceUnavailable)
	}
	for _, sym := range symbols {
		if err := s.conn.WriteJSON(map[string]string{"type": kind, "symbol": sym}); err != nil {
			return fmt.Errorf("%s %s: %w", kind, sym, err)
		}
		s.logger.Debug(kind, applogger.String("symbol", sym))
	}
	return nil
}

type fhTrade struct {
	S string  `json:"s"`
	P float64 `json:"p"`
	V float64 `json:"v"`
	T int64   `json:"t"` // ms
}

type fhMessage struct {
	Type string    `json:"type"`
	Data []fhTrade `json:"data"`
}

// Read streams ticks until the connection fails or ctx ends. Helper
// goroutines started here exit when the read loop returns.
func (s *Stream) Read(ctx context.Context) (<-chan models.Tick, <-chan error) {
	ticks := make(chan models.Tick, 1024)
	errs := make(chan error, 1)
	readCtx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	// ping loop
	go func() {
		ticker := time.NewTicker(s.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-readCtx.Done():
				return
			case <-ticker.C:
				s.mu.Lock()
				if s.conn == conn && conn != nil {
					_ = conn.WriteMessage(websocket.PingMessage, nil)
				}
				s.mu.Unlock()
			}
		}
	}()

	go func() {
		defer cancel()
		defer close(ticks)
		defer close(errs)
		if conn == nil {
			errs <- fmt.Errorf("%w: finnhub conn nil", models.ErrDataSourceUnavailable)
			return
		}
		go func() {
			<-readCtx.Done()
			_ = conn.SetReadDeadline(time.Now())
		}()
		for {
			_, b, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() == nil {
					errs <- fmt.Errorf("%w: finnhub read: %v", models.ErrDataSourceUnavailable, err)
				}
				return
			}
			var m fhMessage
			if err := json.Unmarshal(b, &m); err != nil || m.Type != "trade" {
				continue
			}
			for _, d := range m.Data {
				tick := models.Tick{
					Symbol:    d.S,
					Price:     d.P,
					Volume:    d.V,
					Timestamp: time.UnixMilli(d.T).UTC(),
				}
				select {
				case ticks <- tick:
				default:
					// drop on backpressure
				}
			}
		}
	}()

	return ticks, errs
}

// Reconnect closes, waits reconnectDelay and connects again.
func (s *Stream) Reconnect(ctx context.Context) error {
	_ = s.Close()
	if s.reconnectDelay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.reconnectDelay):
		}
	}
	return s.Connect(ctx)
}

// Close closes the connection. Subscriptions are kept.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	if s.conn != nil {
		err := s.conn.Close()
		s.conn = nil
		return err
	}
	return nil
}

// IsConnected indicates status.
func (s *Stream) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

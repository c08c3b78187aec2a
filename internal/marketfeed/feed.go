// Package marketfeed is the websocket kline collaborator (C9): it
// subscribes to kline.{interval}.{symbol} topics, keeps the connection
// alive with a 10s ping, reconnects with backoff on drop, and dispatches
// NewMarketDataReceived for every message (spec.md §6). Grounded on
// original_source/datasource/bybit_ws.py and the teacher's
// internal/data.MarketDataService websocket plumbing.
package marketfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/atlas-desktop/squad-engine/internal/bus"
	"github.com/atlas-desktop/squad-engine/internal/message"
	"github.com/atlas-desktop/squad-engine/pkg/model"
	"github.com/gorilla/websocket"
	"github.com/jpillora/backoff"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Subscription names one squad's kline stream.
type Subscription struct {
	Symbol    model.Symbol
	Timeframe model.Timeframe
}

func (s Subscription) topic() string {
	return fmt.Sprintf("kline.%s.%s", s.Timeframe.IntervalCode(), s.Symbol.Name)
}

// PingInterval is the keepalive cadence spec.md §6 requires.
const PingInterval = 10 * time.Second

// Feed maintains one reconnecting websocket connection and republishes
// every kline tick onto the bus as NewMarketDataReceived.
type Feed struct {
	url    string
	bus    *bus.Bus
	logger *zap.Logger

	mu   sync.Mutex
	subs []Subscription
	conn *websocket.Conn

	dial func(url string) (*websocket.Conn, error)
}

// New constructs a feed that will dial url once Run is called. subs may be
// empty; the supervisor grows it at TRADING time via the Subscribe command
// registered by Start (spec.md §4.8's final "subscribes the websocket to all
// selected (symbol, timeframe) pairs").
func New(logger *zap.Logger, b *bus.Bus, url string, subs []Subscription) *Feed {
	return &Feed{
		url: url, bus: b, logger: logger, subs: subs,
		dial: func(url string) (*websocket.Conn, error) {
			conn, _, err := websocket.DefaultDialer.Dial(url, nil)
			return conn, err
		},
	}
}

// Start registers the Subscribe command handler so the supervisor can grow
// this feed's topic list at runtime instead of only at construction.
func (f *Feed) Start(b *bus.Bus) {
	b.OnCommand("Subscribe", func(_ context.Context, msg bus.Message) (any, error) {
		c := msg.(message.Subscribe)
		subs := make([]Subscription, len(c.Squads))
		for i, sq := range c.Squads {
			subs[i] = Subscription{Symbol: sq.Symbol, Timeframe: sq.Timeframe}
		}
		f.addSubscriptions(subs)
		return nil, nil
	}, nil)
}

// addSubscriptions appends subs and, if a connection is already live, sends
// subscribe frames for them immediately rather than waiting for the next
// reconnect (which would resend the full list anyway).
func (f *Feed) addSubscriptions(subs []Subscription) {
	f.mu.Lock()
	f.subs = append(f.subs, subs...)
	conn := f.conn
	f.mu.Unlock()

	if conn == nil {
		return
	}
	for _, s := range subs {
		msg := map[string]any{"op": "subscribe", "args": []string{s.topic()}}
		if err := conn.WriteJSON(msg); err != nil {
			f.logger.Warn("marketfeed: live subscribe failed", zap.Error(err))
			return
		}
	}
}

// Run connects, subscribes, and processes messages until ctx is cancelled,
// reconnecting with exponential backoff on any drop.
func (f *Feed) Run(ctx context.Context) {
	b := &backoff.Backoff{Min: time.Second, Max: time.Minute, Factor: 2}
	for {
		if ctx.Err() != nil {
			return
		}
		conn, err := f.dial(f.url)
		if err != nil {
			wait := b.Duration()
			f.logger.Warn("marketfeed: dial failed, retrying", zap.Error(err), zap.Duration("wait", wait))
			if !sleepCtx(ctx, wait) {
				return
			}
			continue
		}
		b.Reset()

		if err := f.subscribe(conn); err != nil {
			f.logger.Error("marketfeed: subscribe failed", zap.Error(err))
			conn.Close()
			continue
		}

		f.mu.Lock()
		f.conn = conn
		f.mu.Unlock()

		f.logger.Info("marketfeed: connected", zap.String("url", f.url))
		f.runConnection(ctx, conn)

		f.mu.Lock()
		f.conn = nil
		f.mu.Unlock()
		conn.Close()
	}
}

func (f *Feed) subscribe(conn *websocket.Conn) error {
	f.mu.Lock()
	subs := append([]Subscription(nil), f.subs...)
	f.mu.Unlock()

	for _, s := range subs {
		msg := map[string]any{"op": "subscribe", "args": []string{s.topic()}}
		if err := conn.WriteJSON(msg); err != nil {
			return err
		}
	}
	return nil
}

// runConnection owns one live connection: it pings on PingInterval and
// reads until the socket drops or ctx is cancelled.
func (f *Feed) runConnection(ctx context.Context, conn *websocket.Conn) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					f.logger.Warn("marketfeed: ping failed", zap.Error(err))
					return
				}
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			f.logger.Warn("marketfeed: read failed, reconnecting", zap.Error(err))
			<-done
			return
		}
		f.handleMessage(data)
	}
}

// klineMessage mirrors Bybit's {"topic": "kline.1.BTCUSDT", "data": [...]}
// envelope (spec.md §6, original_source/datasource/bybit_ws.py).
type klineMessage struct {
	Topic string `json:"topic"`
	Data  []struct {
		Timestamp int64  `json:"timestamp"`
		Open      string `json:"open"`
		High      string `json:"high"`
		Low       string `json:"low"`
		Close     string `json:"close"`
		Volume    string `json:"volume"`
		Confirm   bool   `json:"confirm"`
	} `json:"data"`
}

func (f *Feed) handleMessage(data []byte) {
	var msg klineMessage
	if err := json.Unmarshal(data, &msg); err != nil || msg.Topic == "" || len(msg.Data) == 0 {
		return
	}

	sub, ok := f.subscriptionFor(msg.Topic)
	if !ok {
		return
	}

	d := msg.Data[0]
	ohlcv := model.OHLCV{
		Timestamp: d.Timestamp,
		Open:      parseDecimal(d.Open),
		High:      parseDecimal(d.High),
		Low:       parseDecimal(d.Low),
		Close:     parseDecimal(d.Close),
		Volume:    parseDecimal(d.Volume),
	}

	f.bus.Dispatch(message.NewMarketDataReceived{
		Symbol: sub.Symbol, Timeframe: sub.Timeframe, OHLCV: ohlcv, Closed: d.Confirm,
	})
}

func (f *Feed) subscriptionFor(topic string) (Subscription, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.subs {
		if s.topic() == topic {
			return s, true
		}
	}
	return Subscription{}, false
}

func parseDecimal(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return v
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

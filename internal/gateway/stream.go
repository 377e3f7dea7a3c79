package gateway

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wonny/ibdash/pkg/logger"
)

// Stream timing
const (
	StreamPingInterval = 55 * time.Second
	streamWriteTimeout = 5 * time.Second
)

// OrderUpdate is one order from the live order ("sor") topic
type OrderUpdate struct {
	Account           string `json:"acct"`
	ConID             ConID  `json:"conid"`
	OrderID           ConID  `json:"orderId"`
	Ticker            string `json:"ticker"`
	Side              string `json:"side"`
	OrderType         string `json:"orderType"`
	Status            string `json:"status"`
	FilledQuantity    Number `json:"filledQuantity"`
	RemainingQuantity Number `json:"remainingQuantity"`
	AvgPrice          Number `json:"avgPrice"`
}

type streamMessage struct {
	Topic string          `json:"topic"`
	Args  json.RawMessage `json:"args"`
}

// Stream receives live order updates over the gateway websocket
type Stream struct {
	url       string
	insecure  bool
	sessionFn func(ctx context.Context) (string, error)
	logger    *logger.Logger

	connMu sync.Mutex
	conn   *websocket.Conn

	onOrder func(OrderUpdate)
	onError func(error)

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewStream creates a stream for the gateway at baseURL
// (https://host:port/v1/api becomes wss://host:port/v1/api/ws).
// The session token is obtained through client.Tickle.
func NewStream(baseURL string, insecureTLS bool, client *Client, log *logger.Logger) *Stream {
	wsURL := strings.TrimRight(baseURL, "/") + "/ws"
	wsURL = strings.Replace(wsURL, "https://", "wss://", 1)
	wsURL = strings.Replace(wsURL, "http://", "ws://", 1)

	s := &Stream{
		url:      wsURL,
		insecure: insecureTLS,
		logger:   log.WithField("component", "gateway_stream"),
		stopCh:   make(chan struct{}),
	}
	if client != nil {
		s.sessionFn = func(ctx context.Context) (string, error) {
			resp, err := client.Tickle(ctx)
			if err != nil {
				return "", err
			}
			return resp.Session, nil
		}
	}
	return s
}

// OnOrder sets the order update callback
func (s *Stream) OnOrder(fn func(OrderUpdate)) { s.onOrder = fn }

// OnError sets the error callback
func (s *Stream) OnError(fn func(error)) { s.onError = fn }

// Connect dials the websocket, authenticates and subscribes to live orders
func (s *Stream) Connect(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
		Proxy:            http.ProxyFromEnvironment,
	}
	if s.insecure {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // local gateway uses a self-signed cert
	}

	conn, _, err := dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	s.connMu.Lock()
	s.conn = conn
	s.connMu.Unlock()

	if s.sessionFn != nil {
		session, err := s.sessionFn(ctx)
		if err != nil {
			_ = conn.Close()
			return fmt.Errorf("websocket session: %w", err)
		}
		if err := s.writeJSON(map[string]string{"session": session}); err != nil {
			_ = conn.Close()
			return err
		}
	}

	if err := s.write("sor+{}"); err != nil {
		_ = conn.Close()
		return fmt.Errorf("subscribe orders: %w", err)
	}

	s.wg.Add(2)
	go s.readLoop()
	go s.pingLoop()

	s.logger.Info("Gateway websocket connected")
	return nil
}

// Close unsubscribes and closes the connection
func (s *Stream) Close() error {
	select {
	case <-s.stopCh:
		return nil
	default:
		close(s.stopCh)
	}

	_ = s.write("uor+{}")

	s.connMu.Lock()
	if s.conn != nil {
		_ = s.conn.Close()
	}
	s.connMu.Unlock()

	s.wg.Wait()
	s.logger.Info("Gateway websocket disconnected")
	return nil
}

func (s *Stream) write(msg string) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.conn == nil {
		return fmt.Errorf("not connected")
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, []byte(msg))
}

func (s *Stream) writeJSON(v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.write(string(b))
}

func (s *Stream) readLoop() {
	defer s.wg.Done()

	for {
		s.connMu.Lock()
		conn := s.conn
		s.connMu.Unlock()

		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-s.stopCh:
				return
			default:
			}
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && s.onError != nil {
				s.onError(err)
			}
			return
		}

		s.handle(message)
	}
}

func (s *Stream) handle(message []byte) {
	var msg streamMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		s.logger.WithError(err).Debug("Ignoring non-JSON websocket frame")
		return
	}
	if msg.Topic != "sor" || len(msg.Args) == 0 || s.onOrder == nil {
		return
	}

	var updates []OrderUpdate
	if err := json.Unmarshal(msg.Args, &updates); err != nil {
		s.logger.WithError(err).Warn("Failed to decode order update")
		return
	}
	for _, u := range updates {
		s.onOrder(u)
	}
}

// pingLoop sends "tic" so the gateway keeps the socket open
func (s *Stream) pingLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(StreamPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			if err := s.write("tic"); err != nil {
				s.logger.WithError(err).Warn("Websocket ping failed")
			}
		}
	}
}

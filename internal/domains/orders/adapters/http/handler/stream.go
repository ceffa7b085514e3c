package handler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/Apurer/go-gin-orders-server/internal/domains/orders/adapters/http/mapper"
	orderapp "github.com/Apurer/go-gin-orders-server/internal/domains/orders/application"
	orderdomain "github.com/Apurer/go-gin-orders-server/internal/domains/orders/domain"
	"github.com/Apurer/go-gin-orders-server/internal/platform/auth"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Message types exchanged on the order streams.
const (
	MessageOrders  = "orders"
	MessageError   = "error"
	MessageSession = "session"
	MessageSignout = "signout"
)

// ordersMessage carries one full snapshot. Stats are set on the admin stream only.
type ordersMessage struct {
	Type   string             `json:"type"`
	Orders []mapper.Order     `json:"orders"`
	Stats  *mapper.OrderStats `json:"stats,omitempty"`
}

type errorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// clientMessage is what a storefront sends to bind or drop its session.
type clientMessage struct {
	Type  string `json:"type"`
	Token string `json:"token,omitempty"`
}

// Get /v1/me/orders/stream
// Streams the caller's orders; session messages switch the signed-in user
func (api *OrdersAPI) MyOrdersStream(c *gin.Context) {
	conn, err := api.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		api.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	stream := newStream(conn)
	defer stream.close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	view := orderapp.NewUserOrdersView(api.orders,
		func(orders []*orderdomain.Order) {
			stream.send(ordersMessage{Type: MessageOrders, Orders: mapper.FromDomainOrders(orders)})
		},
		func(err error) {
			stream.send(errorMessage{Type: MessageError, Error: err.Error()})
			stream.close()
		},
	)
	defer view.Close()

	api.bindSession(ctx, stream, view, auth.TokenFromRequest(c))
	go stream.keepalive(ctx)

	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		switch msg.Type {
		case MessageSession:
			api.bindSession(ctx, stream, view, msg.Token)
		case MessageSignout:
			api.bindSession(ctx, stream, view, "")
		default:
			stream.send(errorMessage{Type: MessageError, Error: "unknown message type " + msg.Type})
		}
	}
}

// bindSession verifies the token and rebinds the view. An empty or invalid
// token signs the view out.
func (api *OrdersAPI) bindSession(ctx context.Context, stream *wsStream, view *orderapp.UserOrdersView, token string) {
	var session *orderdomain.Session
	if token != "" {
		principal, err := api.verifier.Verify(token)
		if err != nil {
			stream.send(errorMessage{Type: MessageError, Error: err.Error()})
		} else {
			session = &orderdomain.Session{UserID: principal.UserID, Email: principal.Email}
		}
	}
	if err := view.SetSession(ctx, session); err != nil {
		stream.send(errorMessage{Type: MessageError, Error: err.Error()})
	}
}

// Get /v1/admin/orders/stream
// Streams every order with fresh stats; query filters apply to the orders
func (api *OrdersAPI) AdminOrdersStream(c *gin.Context) {
	filter, ok := api.filterFromQuery(c)
	if !ok {
		return
	}
	conn, err := api.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		api.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	stream := newStream(conn)
	defer stream.close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	sub, err := api.orders.SubscribeAllOrders(ctx,
		func(orders []*orderdomain.Order) {
			stats := mapper.FromDomainStats(orderdomain.ComputeStats(orders, api.now().In(api.location)))
			stream.send(ordersMessage{
				Type:   MessageOrders,
				Orders: mapper.FromDomainOrders(filter.Apply(orders)),
				Stats:  &stats,
			})
		},
		func(err error) {
			stream.send(errorMessage{Type: MessageError, Error: err.Error()})
			stream.close()
		},
	)
	if err != nil {
		stream.send(errorMessage{Type: MessageError, Error: err.Error()})
		return
	}
	defer sub.Close()

	go stream.keepalive(ctx)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// wsStream serializes writes to one websocket connection.
type wsStream struct {
	conn *websocket.Conn
	mu   sync.Mutex
	once sync.Once
}

func newStream(conn *websocket.Conn) *wsStream {
	s := &wsStream{conn: conn}
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	return s
}

// send writes v as JSON. A failed write closes the connection so the read loop ends.
func (s *wsStream) send(v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteJSON(v); err != nil {
		_ = s.conn.Close()
	}
}

func (s *wsStream) keepalive(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				s.close()
				return
			}
		}
	}
}

func (s *wsStream) close() {
	s.once.Do(func() {
		_ = s.conn.Close()
	})
}

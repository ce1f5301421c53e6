package service

import (
	"net/http"
	"sync"
	"time"

	"signal_bot/internal/models"
	"signal_bot/pkg/logger"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	feedBuffer   = 32
	writeTimeout = 5 * time.Second
	pingEvery    = 30 * time.Second
)

type feedClient struct {
	out  chan []byte
	once sync.Once
}

func (c *feedClient) close() { c.once.Do(func() { close(c.out) }) }

// Feed — живая лента для дашборда: каждое сообщение рассылки уходит
// подключённым websocket-клиентам. Медленный клиент отключается.
type Feed struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*feedClient]struct{}
}

func NewFeed() *Feed {
	return &Feed{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*feedClient]struct{}),
	}
}

func (f *Feed) Clients() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}

func (f *Feed) Publish(msg models.Message) {
	b, err := sonic.Marshal(msg)
	if err != nil {
		logger.Warn("feed: marshal %s: %v", msg.SignalID, err)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for c := range f.clients {
		select {
		case c.out <- b:
		default:
			delete(f.clients, c)
			c.close()
		}
	}
}

func (f *Feed) add() *feedClient {
	c := &feedClient{out: make(chan []byte, feedBuffer)}
	f.mu.Lock()
	f.clients[c] = struct{}{}
	f.mu.Unlock()
	return c
}

func (f *Feed) remove(c *feedClient) {
	f.mu.Lock()
	delete(f.clients, c)
	f.mu.Unlock()
	c.close()
}

// Close отключает всех клиентов.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for c := range f.clients {
		delete(f.clients, c)
		c.close()
	}
}

// Serve — GET /feed.
func (f *Feed) Serve(c echo.Context) error {
	conn, err := f.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	client := f.add()
	logger.Debug("feed: client %s connected", c.RealIP())

	// читатель нужен только чтобы заметить закрытие
	go func() {
		defer f.remove(client)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingEvery)
	defer func() {
		ping.Stop()
		_ = conn.Close()
	}()
	for {
		select {
		case b, ok := <-client.out:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return nil
			}
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return nil
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		}
	}
}

package websocket

import (
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"

	"condorledger/internal/metrics"
	"condorledger/internal/models"
	"condorledger/pkg/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// broadcastBufferSize - очередь сообщений до главного цикла
const broadcastBufferSize = 256

// Hub управляет всеми активными WebSocket соединениями /ws/stream.
//
// Клиенты только слушают: после каждого изменения журнала сервис
// вызывает BroadcastLedgerUpdate, и hub рассылает снимок статистики всем.
//
// Использование:
// 1. Создать hub: hub := NewHub(allowedOrigins)
// 2. Запустить в горутине: go hub.Run()
// 3. Остановить при shutdown: hub.Stop()
type Hub struct {
	clients map[*Client]struct{}

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	stop       chan struct{}
	stopOnce   sync.Once

	upgrader *websocket.Upgrader
	dropped  atomic.Int64
	log      *utils.Logger

	mu sync.RWMutex
}

// NewHub создает новый Hub; пустой список origins разрешает любой Origin
func NewHub(allowedOrigins ...string) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan []byte, broadcastBufferSize),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stop:       make(chan struct{}),
		upgrader:   newUpgrader(NewOriginChecker(allowedOrigins)),
		log:        utils.L().WithComponent("websocket"),
	}
}

// Run обслуживает регистрацию и рассылку до вызова Stop
func (h *Hub) Run() {
	for {
		select {
		case <-h.stop:
			h.mu.RLock()
			all := make([]*Client, 0, len(h.clients))
			for c := range h.clients {
				all = append(all, c)
			}
			h.mu.RUnlock()
			h.remove(all...)
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			metrics.WebSocketClients.Set(float64(n))
			h.log.Debug("client connected", utils.ClientCount(n), utils.RemoteAddr(c.remoteAddr))

		case c := <-h.unregister:
			h.remove(c)

		case msg := <-h.broadcast:
			if slow := h.deliver(msg); len(slow) > 0 {
				n := h.remove(slow...)
				h.log.Warn("removed slow clients", utils.Count(len(slow)), utils.ClientCount(n))
			}
		}
	}
}

// deliver кладет сообщение в очереди клиентов без ожидания.
// Возвращает клиентов с переполненной очередью.
func (h *Hub) deliver(msg []byte) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var slow []*Client
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	return slow
}

// remove отключает клиентов: закрытый send завершает их writeLoop.
// Повторное удаление игнорируется. Возвращает число оставшихся клиентов.
func (h *Hub) remove(clients ...*Client) int {
	h.mu.Lock()
	for _, c := range clients {
		if _, ok := h.clients[c]; ok {
			delete(h.clients, c)
			close(c.send)
		}
	}
	n := len(h.clients)
	h.mu.Unlock()

	metrics.WebSocketClients.Set(float64(n))
	return n
}

// Stop завершает Run и закрывает все соединения; повторный вызов безопасен
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stop)
	})
}

// Broadcast сериализует сообщение и ставит его в очередь.
// При переполненной очереди сообщение отбрасывается, вызывающий не блокируется.
func (h *Hub) Broadcast(message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		h.log.Error("marshal broadcast message", utils.Err(err))
		return
	}

	select {
	case h.broadcast <- data:
	default:
		h.dropped.Add(1)
		h.log.Warn("broadcast queue full, message dropped", utils.Int64("dropped_total", h.dropped.Load()))
	}
}

// BroadcastLedgerUpdate отправляет статистику символа всем клиентам
func (h *Hub) BroadcastLedgerUpdate(symbol string, stats models.DashboardStats) {
	h.log.Debug("ledger update",
		utils.MessageType(string(MessageTypeLedgerUpdate)),
		utils.Symbol(symbol),
		utils.ClientCount(h.ClientCount()),
	)
	h.Broadcast(NewLedgerUpdateMessage(symbol, stats))
}

// ClientCount возвращает количество подключенных клиентов
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// DroppedMessages - сколько сообщений отброшено из-за переполненной очереди
func (h *Hub) DroppedMessages() int64 {
	return h.dropped.Load()
}

// Package websocket - real-time рассылка событий движка UI клиентам.
package websocket

import (
	"bytes"
	"sync"

	jsoniter "github.com/json-iterator/go"

	"orion-brain/internal/models"
	"orion-brain/pkg/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Пул JSON буферов: Broadcast вызывается на каждом событии движка,
// аллокации на каждое сообщение ни к чему
var jsonBufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 512))
	},
}

// Hub управляет всеми активными WebSocket соединениями.
//
// Центральный менеджер broadcast сообщений: уведомления движка, итоги
// прогонов и изменения позиций уходят всем подключенным UI клиентам без
// polling'а.
//
// Использование:
//  1. Создать hub: hub := NewHub(logger)
//  2. Запустить в горутине: go hub.Run()
//  3. Отправлять события: hub.BroadcastNotification(n)
type Hub struct {
	clients map[*Client]bool

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	logger *utils.Logger

	// mutex для потокобезопасного доступа к clients
	mu sync.RWMutex
}

// NewHub создает новый Hub
func NewHub(logger *utils.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger.WithComponent("websocket"),
	}
}

// Run запускает главный цикл Hub.
// Должен запускаться в отдельной горутине: go hub.Run()
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("ws client connected", utils.Int("total", total))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("ws client disconnected", utils.Int("total", total))

		case message := <-h.broadcast:
			// список клиентов копируется под коротким RLock, отправка
			// идет без блокировки, чтобы не тормозить register/unregister
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mu.RUnlock()

			var toRemove []*Client
			for _, client := range clients {
				select {
				case client.send <- message:
				default:
					// клиент не успевает вычитывать - отключаем
					toRemove = append(toRemove, client)
				}
			}

			if len(toRemove) > 0 {
				h.mu.Lock()
				for _, client := range toRemove {
					if _, ok := h.clients[client]; ok {
						delete(h.clients, client)
						close(client.send)
					}
				}
				total := len(h.clients)
				h.mu.Unlock()
				h.logger.Warn("slow ws clients removed",
					utils.Int("removed", len(toRemove)), utils.Int("total", total))
			}
		}
	}
}

// Broadcast сериализует сообщение и рассылает его всем клиентам
func (h *Hub) Broadcast(message interface{}) {
	buf := jsonBufferPool.Get().(*bytes.Buffer)
	buf.Reset()

	if err := json.NewEncoder(buf).Encode(message); err != nil {
		h.logger.Error("broadcast message encode failed", utils.Err(err))
		jsonBufferPool.Put(buf)
		return
	}

	// Encode добавляет trailing newline
	data := buf.Bytes()
	if len(data) > 0 && data[len(data)-1] == '\n' {
		data = data[:len(data)-1]
	}

	// буфер вернется в пул, данные копируются
	msgCopy := make([]byte, len(data))
	copy(msgCopy, data)
	jsonBufferPool.Put(buf)

	h.broadcast <- msgCopy
}

// BroadcastNotification отправляет уведомление движка всем клиентам
func (h *Hub) BroadcastNotification(notif *models.Notification) {
	h.Broadcast(NewNotificationMessage(notif))
}

// BroadcastRunReport отправляет итог прогона всем клиентам
func (h *Hub) BroadcastRunReport(report *models.RunReport) {
	h.Broadcast(NewRunReportMessage(report))
}

// BroadcastPositionUpdate отправляет изменение позиции всем клиентам
func (h *Hub) BroadcastPositionUpdate(p *models.Position) {
	h.Broadcast(NewPositionUpdateMessage(p))
}

// ClientCount возвращает количество подключенных клиентов
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

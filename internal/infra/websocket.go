package infra

import (
	"log"
	"sync"

	"github.com/gofiber/contrib/websocket"
)

// WsManager fans engine events out to connected WebSocket clients.
// Each connection gets a buffered send channel and a dedicated writer
// goroutine so one slow client never stalls the broadcast path.
type WsManager struct {
	clients      map[*websocket.Conn]bool
	sendChannels map[*websocket.Conn]chan interface{}
	mu           sync.RWMutex

	Register   chan *websocket.Conn
	Unregister chan *websocket.Conn
}

func NewWsManager() *WsManager {
	return &WsManager{
		clients:      make(map[*websocket.Conn]bool),
		sendChannels: make(map[*websocket.Conn]chan interface{}),
		Register:     make(chan *websocket.Conn),
		Unregister:   make(chan *websocket.Conn),
	}
}

func (manager *WsManager) Start() {
	log.Println("Starting WebSocket Manager...")
	for {
		select {
		case conn := <-manager.Register:
			manager.mu.Lock()
			manager.clients[conn] = true

			sendCh := make(chan interface{}, 256)
			manager.sendChannels[conn] = sendCh

			go func(conn *websocket.Conn, ch chan interface{}) {
				for msg := range ch {
					if err := conn.WriteJSON(msg); err != nil {
						log.Printf("WS WriteLoop error: %v", err)
						conn.Close()
						return
					}
				}
			}(conn, sendCh)

			manager.mu.Unlock()
			log.Println("New WebSocket client connected")

		case conn := <-manager.Unregister:
			manager.mu.Lock()
			if _, ok := manager.clients[conn]; ok {
				delete(manager.clients, conn)
				if ch, exists := manager.sendChannels[conn]; exists {
					close(ch)
					delete(manager.sendChannels, conn)
				}
			}
			manager.mu.Unlock()
			log.Println("WebSocket client disconnected")
		}
	}
}

// BroadcastToAll queues data for every connected client, dropping it
// for clients whose buffers are full.
func (manager *WsManager) BroadcastToAll(data interface{}) {
	manager.mu.RLock()
	defer manager.mu.RUnlock()

	for conn := range manager.clients {
		if ch, ok := manager.sendChannels[conn]; ok {
			select {
			case ch <- data:
			default:
				log.Println("Warning: WS send buffer full, dropping event")
			}
		}
	}
}

package server

import (
	"encoding/json"
	"net/http"
	"time"

	"stock-screener/src/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// reply is a direct answer to one client's command.
type reply struct {
	client *Client
	update models.MWatchlistUpdate
}

// handleWebsockets is the main Hub loop
func (s *APIServer) handleWebsockets() {
	for {
		select {
		case <-s.quit:
			for client := range s.clients {
				delete(s.clients, client)
				close(client.send)
			}
			s.setConnections()
			return

		case client := <-s.register:
			s.clients[client] = struct{}{}
			s.setConnections()
			// Send the current snapshot on connect
			s.stateMutex.RLock()
			snapshot := client.filter(*s.latestState)
			s.stateMutex.RUnlock()
			client.send <- snapshot

		case client := <-s.unregister:
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				close(client.send)
				s.setConnections()
			}

		case r := <-s.replies:
			if _, ok := s.clients[r.client]; ok {
				select {
				case r.client.send <- r.update:
				default:
				}
			}

		case message := <-s.broadcast:
			for client := range s.clients {
				select {
				case client.send <- client.filter(*message):
				default:
					// Slow consumers are dropped so the hub never blocks
					delete(s.clients, client)
					close(client.send)
				}
			}
			s.setConnections()
		}
	}
}

// -----------------------------------------------------------------------------

func (s *APIServer) setConnections() {
	s.connections.Store(int32(len(s.clients)))
	s.Metrics.SetWatchlistClients(len(s.clients))
}

// -----------------------------------------------------------------------------
// Watchlist publishing
// -----------------------------------------------------------------------------

// Publish merges a screener summary into the watchlist snapshot and pushes
// the changed rows to subscribers. Failed rows are not published.
func (s *APIServer) Publish(summary models.MScreenSummary) {
	run := summary
	run.Results = nil
	s.history.Append(run)

	update := &models.MWatchlistUpdate{
		Type:      "UPDATE",
		Results:   make(map[string]models.MScreenResult),
		Timestamp: time.Now().Unix(),
	}
	for _, r := range summary.Results {
		if r.Error == "" {
			update.Results[r.Ticker] = r
		}
	}
	if len(update.Results) == 0 {
		return
	}

	s.stateMutex.Lock()
	for tkr, r := range update.Results {
		s.latestState.Results[tkr] = r
	}
	s.latestState.Timestamp = update.Timestamp
	s.stateMutex.Unlock()

	select {
	case s.broadcast <- update:
	case <-s.quit:
	default:
		s.Logger.Warning("Watchlist broadcast queue full, dropping update of %d tickers", len(update.Results))
	}
}

// -----------------------------------------------------------------------------

// Snapshot returns a copy of the current watchlist state.
func (s *APIServer) Snapshot() models.MWatchlistUpdate {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()
	return s.latestState.Filter(nil)
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *APIServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := newClient(s, conn)

	select {
	case s.register <- client:
	case <-s.quit:
		conn.Close()
		return
	}

	// Start goroutines for reading/writing
	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

// HandleClientMessage applies a subscribe or unsubscribe command and answers
// with the matching part of the snapshot.
func (s *APIServer) HandleClientMessage(client *Client, message []byte) {
	var cmd models.MSubscribeCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.Logger.Info("Failed to parse client command: %v, disconnecting client", err)
		client.conn.Close()
		return
	}

	symbols := normalizeSymbols(cmd.Symbols)
	switch cmd.Command {
	case "subscribe":
		client.subscribe(symbols)
	case "unsubscribe":
		client.unsubscribe(symbols)
	default:
		s.Logger.Debug("Ignoring unknown command %q", cmd.Command)
		return
	}

	s.stateMutex.RLock()
	response := client.filter(*s.latestState)
	s.stateMutex.RUnlock()
	response.Type = "SNAPSHOT"

	// Replies go through the hub, which owns the send channels.
	select {
	case s.replies <- reply{client: client, update: response}:
	case <-s.quit:
	}
}

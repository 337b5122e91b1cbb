package server

import (
	"net/http"
	"strings"

	"github.com/dexwallet/tx-manager/log"
	"github.com/dexwallet/tx-manager/store"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  wsBufferSizeLimitInBytes,
	WriteBufferSize: wsBufferSizeLimitInBytes,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleWs streams lifecycle notifications for one address over a websocket. The client
// selects the address via the address query parameter.
func (s *Server) handleWs(w http.ResponseWriter, req *http.Request) {
	address := strings.ToLower(req.URL.Query().Get("address"))
	if address == "" {
		http.Error(w, "address query parameter is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		log.Errorf("error upgrading websocket connection, error: %v", err)
		return
	}
	defer conn.Close()

	sub := s.store.Subscribe(func(ev store.Event) bool {
		return ev.Kind == store.EventNotification && strings.EqualFold(ev.Notification.Address, address)
	})
	defer sub.Close()

	// drain client frames so close and ping control messages are processed
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	log.Debugf("websocket notification feed opened for %s", address)

	for {
		select {
		case <-closed:
			return
		case ev := <-sub.C():
			if err := conn.WriteJSON(ev.Notification); err != nil {
				log.Debugf("error writing notification to websocket for %s, error: %v", address, err)
				return
			}
		}
	}
}

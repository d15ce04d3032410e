package comms

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var (
	ErrControlInUse = errors.New("another operator is in control")
)

// DefaultPongWait is how long a silent controller keeps control.
const DefaultPongWait = 2 * time.Second

// Reply is sent back for every message a controller sends.
type Reply struct {
	Session string `json:"session"`
	Cmd     string `json:"cmd,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ControlHandler streams commands from a single operator over a websocket.
// Only one operator may hold control at a time, and losing the connection
// re-centres the live sticks so the drive comes to a stop.
type ControlHandler struct {
	Conductor *Conductor
	Upgrader  websocket.Upgrader

	// PongWait is the longest the connection may go without a message or a
	// pong. Pings are sent at half of it.
	PongWait time.Duration

	lck     sync.Mutex
	session string
}

func NewControlHandler(conductor *Conductor) *ControlHandler {
	return &ControlHandler{
		Conductor: conductor,
		Upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		PongWait: DefaultPongWait,
	}
}

func (h *ControlHandler) acquire() (string, error) {
	h.lck.Lock()
	defer h.lck.Unlock()
	if h.session != "" {
		return "", ErrControlInUse
	}
	h.session = uuid.New().String()
	return h.session, nil
}

func (h *ControlHandler) release() {
	h.lck.Lock()
	defer h.lck.Unlock()
	h.session = ""
}

// Session returns the id of the controlling session, or "" when nobody is
// connected.
func (h *ControlHandler) Session() string {
	h.lck.Lock()
	defer h.lck.Unlock()
	return h.session
}

func (h *ControlHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	session, err := h.acquire()
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	defer h.release()

	conn, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Error upgrading websocket: %q", err.Error())
		return
	}
	defer conn.Close()
	defer h.Conductor.Centre()

	log.Printf("control session %s started from %s", session, r.RemoteAddr)
	defer log.Printf("control session %s ended", session)

	extend := func() error {
		return conn.SetReadDeadline(time.Now().Add(h.PongWait))
	}
	extend()
	conn.SetPongHandler(func(string) error { return extend() })

	done := make(chan struct{})
	defer close(done)
	go h.ping(conn, done)

	if err := conn.WriteJSON(Reply{Session: session}); err != nil {
		return
	}

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Println("read:", err)
			}
			return
		}

		extend()

		reply := Reply{Session: session}
		var cmd Cmd
		if err := json.Unmarshal(msg, &cmd); err != nil {
			reply.Error = "invalid json"
		} else {
			reply.Cmd = cmd.Cmd
			if err := h.Conductor.ProcessCommand(cmd); err != nil {
				reply.Error = err.Error()
			}
		}

		if err := conn.WriteJSON(reply); err != nil {
			log.Println("write:", err)
			return
		}
	}
}

// ping keeps a healthy connection inside its read deadline. A peer that stops
// answering lets the deadline pass and loses control.
func (h *ControlHandler) ping(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(h.PongWait / 2)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.PongWait)); err != nil {
				return
			}
		}
	}
}

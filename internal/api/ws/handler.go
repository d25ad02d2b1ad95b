package ws

import (
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/WebDesk/internal/domain/supervisor"
	"github.com/GriffinCanCode/WebDesk/internal/infrastructure/logging"
	"github.com/GriffinCanCode/WebDesk/internal/infrastructure/monitoring"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // status page may be served from the bridge origin
	},
}

// envelope is the wire frame for stream messages.
type envelope struct {
	Type  string                  `json:"type"`
	Stack *supervisor.StackStatus `json:"stack,omitempty"`
	Event *supervisor.Event       `json:"event,omitempty"`
}

// Handler streams stage transitions to WebSocket subscribers.
type Handler struct {
	sup     *supervisor.Supervisor
	metrics *monitoring.Metrics
	log     *logging.Logger
}

// NewHandler creates a new WebSocket handler.
func NewHandler(sup *supervisor.Supervisor, metrics *monitoring.Metrics, log *logging.Logger) *Handler {
	return &Handler{
		sup:     sup,
		metrics: metrics,
		log:     log,
	}
}

// HandleConnection upgrades the request, replays the current snapshot, and
// streams every transition until the client disconnects.
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	if h.metrics != nil {
		h.metrics.IncWSConnections()
		defer h.metrics.DecWSConnections()
	}

	// Snapshot first so the client can render current state immediately.
	snap := h.sup.Snapshot()
	if err := h.send(conn, envelope{Type: "snapshot", Stack: &snap}); err != nil {
		return
	}

	id, events := h.sup.Events().Subscribe()
	defer h.sup.Events().Unsubscribe(id)

	// The read loop only exists to observe the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := h.send(conn, envelope{Type: "event", Event: &ev}); err != nil {
				return
			}
			if h.metrics != nil {
				h.metrics.IncWSEvents()
			}
		case <-closed:
			return
		}
	}
}

func (h *Handler) send(conn *websocket.Conn, v envelope) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

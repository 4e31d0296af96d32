package web

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/visiona/armdeck/internal/pose"
)

// clientMessage is the inbound websocket format, discriminated by Type.
type clientMessage struct {
	Type       string             `json:"type"` // set_joint, restore, home, hover
	Joint      string             `json:"joint,omitempty"`
	Angle      float64            `json:"angle,omitempty"`
	Pose       map[string]float64 `json:"pose,omitempty"`
	Animate    bool               `json:"animate,omitempty"`
	DurationMs int                `json:"duration_ms,omitempty"`
	Hovered    bool               `json:"hovered,omitempty"`
}

// event is the outbound websocket format.
type event struct {
	Type    string             `json:"type"` // joint, hover, pose
	Joint   string             `json:"joint,omitempty"`
	Angle   float64            `json:"angle,omitempty"`
	Hovered bool               `json:"hovered,omitempty"`
	Joints  map[string]float64 `json:"joints,omitempty"`
}

func poseEvent(p pose.Pose) event {
	return event{Type: "pose", Joints: p}
}

func encodeEvent(e event) ([]byte, error) {
	return json.Marshal(e)
}

type client struct {
	socket *websocket.Conn
	send   chan []byte
	hub    *Hub
}

// read pumps inbound messages until the socket closes. A message that fails
// to parse is logged and skipped; a control-surface glitch must never take
// the session down.
func (c *client) read() {
	defer c.socket.Close()
	for {
		_, data, err := c.socket.ReadMessage()
		if err != nil {
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("ignoring malformed client message", "error", err)
			continue
		}
		c.dispatch(msg)
	}
}

func (c *client) dispatch(msg clientMessage) {
	cb := c.hub.callbacks
	switch msg.Type {
	case "set_joint":
		if cb.OnSetJoint != nil {
			cb.OnSetJoint(msg.Joint, msg.Angle)
		}
	case "restore":
		if cb.OnRestore != nil {
			cb.OnRestore(pose.Pose(msg.Pose), msg.Animate, time.Duration(msg.DurationMs)*time.Millisecond)
		}
	case "home":
		if cb.OnHome != nil {
			cb.OnHome(msg.Animate)
		}
	case "hover":
		if cb.OnHover != nil {
			cb.OnHover(msg.Joint, msg.Hovered)
		}
	default:
		slog.Warn("ignoring unknown client message", "type", msg.Type)
	}
}

// write pumps queued events to the socket until the send channel closes.
func (c *client) write() {
	defer c.socket.Close()
	for msg := range c.send {
		if err := c.socket.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/thereceipt/cover-engine/internal/coverformat"
	"github.com/thereceipt/cover-engine/internal/export"
	"github.com/thereceipt/cover-engine/internal/jobs"
	"github.com/thereceipt/cover-engine/internal/logging"
	"github.com/thereceipt/cover-engine/internal/preview"
)

// WebSocket message types
const (
	// Client to server
	EventDesign     = "design"
	EventViewport   = "viewport"
	EventZoom       = "zoom"
	EventZoomIn     = "zoom_in"
	EventZoomOut    = "zoom_out"
	EventReset      = "reset"
	EventPanStart   = "pan_start"
	EventPanMove    = "pan_move"
	EventPanEnd     = "pan_end"
	EventGuidelines = "guidelines"
	EventRender     = "render"
	EventExport     = "export"

	// Server to client
	EventFrame        = "frame"
	EventExportUpdate = "export_updated"
	EventResponse     = "response"
	EventError        = "error"
)

// WSMessage represents a WebSocket message
type WSMessage struct {
	Event string                 `json:"event"`
	Data  map[string]interface{} `json:"data"`
}

// WSClient is one connected preview session. Its view and project are only
// touched from readPump.
type WSClient struct {
	conn   *websocket.Conn
	send   chan WSMessage
	server *Server
	ctx    context.Context
	cancel context.CancelFunc

	project    *coverformat.Project
	view       preview.View
	guidelines bool
}

// Hub tracks connected clients for broadcasts.
type Hub struct {
	clients map[*WSClient]bool
	mu      sync.RWMutex
	logger  *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*WSClient]bool),
		logger:  logging.OrDiscard(logger),
	}
}

func (h *Hub) add(client *WSClient) {
	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()
}

// remove drops the client and closes its send channel.
func (h *Hub) remove(client *WSClient) {
	h.mu.Lock()
	if h.clients[client] {
		delete(h.clients, client)
		close(client.send)
	}
	h.mu.Unlock()
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends msg to every client, skipping clients whose buffer is full.
func (h *Hub) Broadcast(msg WSMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		select {
		case client.send <- msg:
		default:
			// Client send buffer full, skip
		}
	}
}

// BroadcastJob announces an export job status change. It has the signature
// of a jobs.WithNotify callback.
func (h *Hub) BroadcastJob(j jobs.Job) {
	data := map[string]interface{}{
		"id":      j.ID,
		"title":   j.Title,
		"status":  j.Status,
		"format":  j.Format,
		"dpi":     j.DPI,
		"retries": j.Retries,
	}
	if j.Error != "" {
		data["error"] = j.Error
	}
	if j.Filename != "" {
		data["filename"] = j.Filename
		data["size"] = j.Size
	}

	h.Broadcast(WSMessage{Event: EventExportUpdate, Data: data})
	h.logger.Debug("broadcast export update", "job", j.ID, "status", j.Status)
}

// handleWebSocket handles WebSocket connections
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	client := &WSClient{
		conn:   conn,
		send:   make(chan WSMessage, 256),
		server: s,
		ctx:    ctx,
		cancel: cancel,
		view:   preview.NewView(),
	}

	s.hub.add(client)
	s.logger.Info("websocket client connected", "remote", conn.RemoteAddr().String())

	go client.readPump()
	go client.writePump()
}

func (c *WSClient) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			c.server.logger.Warn("websocket write failed", "error", err)
			c.cancel()
			return
		}
	}
}

func (c *WSClient) readPump() {
	defer func() {
		c.cancel()
		c.server.hub.remove(c)
		c.server.logger.Info("websocket client disconnected")
	}()

	for {
		var msg WSMessage
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.server.logger.Warn("websocket read failed", "error", err)
			}
			break
		}

		c.handleMessage(&msg)
	}
}

func (c *WSClient) handleMessage(msg *WSMessage) {
	switch msg.Event {
	case EventDesign:
		c.handleDesign(msg.Data)
	case EventViewport:
		w, okW := number(msg.Data, "width")
		h, okH := number(msg.Data, "height")
		if !okW || !okH {
			c.sendError("width and height are required")
			return
		}
		if err := c.view.SetViewport(w, h); err != nil {
			c.sendError(err.Error())
			return
		}
		c.sendFrame()
	case EventZoom:
		x, _ := number(msg.Data, "x")
		y, _ := number(msg.Data, "y")
		deltaY, ok := number(msg.Data, "deltaY")
		if !ok {
			c.sendError("deltaY is required")
			return
		}
		c.view.ZoomAt(x, y, deltaY)
		c.sendFrame()
	case EventZoomIn:
		c.view.ZoomIn()
		c.sendFrame()
	case EventZoomOut:
		c.view.ZoomOut()
		c.sendFrame()
	case EventReset:
		c.view.Reset()
		c.sendFrame()
	case EventPanStart:
		x, _ := number(msg.Data, "x")
		y, _ := number(msg.Data, "y")
		c.view.BeginPan(x, y)
	case EventPanMove:
		x, _ := number(msg.Data, "x")
		y, _ := number(msg.Data, "y")
		if c.view.PanTo(x, y) {
			c.sendFrame()
		}
	case EventPanEnd:
		c.view.EndPan()
	case EventGuidelines:
		enabled, _ := msg.Data["enabled"].(bool)
		c.guidelines = enabled
		c.sendFrame()
	case EventRender:
		c.sendFrame()
	case EventExport:
		c.handleExport(msg.Data)
	default:
		c.sendError(fmt.Sprintf("unknown event: %s", msg.Event))
	}
}

func (c *WSClient) handleDesign(data map[string]interface{}) {
	projectData, ok := data["project"]
	if !ok {
		c.sendError("project is required")
		return
	}

	raw, _ := json.Marshal(projectData)
	project, err := parseProject(raw)
	if err != nil {
		c.sendError(err.Error())
		return
	}

	c.project = project
	c.sendFrame()
}

func (c *WSClient) handleExport(data map[string]interface{}) {
	if c.project == nil {
		c.sendError("no design loaded")
		return
	}

	formatName, _ := data["format"].(string)
	format, err := export.ParseFormat(formatName)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	dpi, _ := number(data, "dpi")
	if err := export.CheckDPI(dpi); err != nil {
		c.sendError(err.Error())
		return
	}

	jobID := c.server.queue.Enqueue(jobs.Request{Project: *c.project, Format: format, DPI: dpi})

	c.sendResponse(map[string]interface{}{
		"success": true,
		"job_id":  jobID,
	})
}

// sendFrame renders the current view and sends it as a base64 PNG.
func (c *WSClient) sendFrame() {
	if c.project == nil {
		return
	}

	data, err := c.server.pipeline.PreviewPNG(c.ctx, c.project, c.view.Target(), c.guidelines)
	if err != nil {
		c.sendError(fmt.Sprintf("failed to render preview: %v", err))
		return
	}

	c.queue(WSMessage{
		Event: EventFrame,
		Data: map[string]interface{}{
			"image":   base64.StdEncoding.EncodeToString(data),
			"scale":   c.view.Scale,
			"offsetX": c.view.OffsetX,
			"offsetY": c.view.OffsetY,
		},
	})
}

func (c *WSClient) sendResponse(data map[string]interface{}) {
	c.queue(WSMessage{
		Event: EventResponse,
		Data:  data,
	})
}

func (c *WSClient) sendError(message string) {
	c.queue(WSMessage{
		Event: EventError,
		Data: map[string]interface{}{
			"error": message,
		},
	})
}

func (c *WSClient) queue(msg WSMessage) {
	select {
	case c.send <- msg:
	case <-c.ctx.Done():
	}
}

// number reads a JSON number from a message payload.
func number(data map[string]interface{}, key string) (float64, bool) {
	v, ok := data[key].(float64)
	return v, ok
}

package ui

import (
	"bytes"
	"embed"
	"encoding/json"
	"html/template"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/rprigarin/test-driven-planner/internal/domain/events"
	"github.com/rprigarin/test-driven-planner/internal/planner"

	apicontrollers "github.com/rprigarin/test-driven-planner/internal/api/controllers"
	uicontrollers "github.com/rprigarin/test-driven-planner/internal/ui/controllers"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/yuin/goldmark"
	gfmext "github.com/yuin/goldmark/extension"

	"go.uber.org/zap"
)

//go:embed static/* templates/*
var embeddedFiles embed.FS

type UI struct {
	access         *planner.Access
	logger         *zap.Logger
	wsUpgrader     websocket.Upgrader
	wsClients      map[*websocket.Conn]bool
	wsClientsMutex sync.RWMutex
}

func NewUI(access *planner.Access, logger *zap.Logger) *UI {
	ui := &UI{
		access: access,
		logger: logger,
		wsUpgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow connections from any origin for development
			},
		},
		wsClients: make(map[*websocket.Conn]bool),
	}

	// Start WebSocket event broadcaster
	go ui.startWebSocketBroadcaster()

	return ui
}

// startWebSocketBroadcaster listens for planner events and broadcasts them to WebSocket clients
func (u *UI) startWebSocketBroadcaster() {
	taskCancel := events.SubscribeToTaskChanges(func(data events.TaskChangeEventData) {
		u.broadcast(map[string]interface{}{
			"type":   "task_change",
			"change": data.Change,
		})
	})
	modeCancel := events.SubscribeToModeChanges(func(data events.ModeChangeEventData) {
		u.broadcast(map[string]interface{}{
			"type":   "mode_change",
			"mode":   data.Mode,
			"reason": data.Reason,
		})
	})

	defer func() {
		taskCancel()
		modeCancel()
	}()

	// Keep the broadcaster running
	select {}
}

// broadcast sends a planner event to all connected WebSocket clients
func (u *UI) broadcast(eventData map[string]interface{}) {
	u.wsClientsMutex.RLock()
	clients := make(map[*websocket.Conn]bool)
	for client := range u.wsClients {
		clients[client] = true
	}
	u.wsClientsMutex.RUnlock()

	message, err := json.Marshal(eventData)
	if err != nil {
		u.logger.Error("Failed to marshal WebSocket message", zap.Error(err))
		return
	}

	// Send to clients outside of the lock to avoid holding it during network operations
	for client := range clients {
		if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
			u.logger.Warn("Failed to send WebSocket message to client, removing from clients", zap.Error(err))
			u.wsClientsMutex.Lock()
			delete(u.wsClients, client)
			u.wsClientsMutex.Unlock()
			client.Close()
		}
	}
}

// handleWebSocket handles WebSocket connections
func (u *UI) handleWebSocket(c echo.Context) error {
	ws, err := u.wsUpgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		u.logger.Error("Failed to upgrade WebSocket connection", zap.Error(err))
		return err
	}
	defer ws.Close()

	// Add client to the clients map
	u.wsClientsMutex.Lock()
	u.wsClients[ws] = true
	u.wsClientsMutex.Unlock()

	u.logger.Info("WebSocket client connected")

	// Clean up when client disconnects
	defer func() {
		u.wsClientsMutex.Lock()
		delete(u.wsClients, ws)
		u.wsClientsMutex.Unlock()
		u.logger.Info("WebSocket client disconnected")
	}()

	// Keep connection alive and handle any incoming messages
	for {
		_, _, err := ws.ReadMessage()
		if err != nil {
			break
		}
	}

	return nil
}

func (u *UI) Run(addr string) error {
	funcMap := template.FuncMap{
		"renderMarkdown": renderMarkdown,
		"formatNumber": func(num int64) string {
			return humanize.Comma(num)
		},
		"timeAgo": func(t time.Time) string {
			return humanize.Time(t)
		},
	}

	tmpl, err := template.New("").Funcs(funcMap).ParseFS(embeddedFiles, "templates/*.html")
	if err != nil {
		u.logger.Fatal("Failed to parse templates", zap.Error(err))
	}

	plannerController := uicontrollers.NewPlannerController(u.logger, tmpl, u.access)
	taskController := apicontrollers.NewTaskController(u.logger, u.access)

	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORS())

	// serve static files from embedded
	e.GET("/static/*", func(c echo.Context) error {
		path := c.Param("*")
		filePath := "static/" + path
		file, err := embeddedFiles.Open(filePath)
		if err != nil {
			u.logger.Error("Failed to open static file", zap.String("path", filePath), zap.Error(err))
			return echo.NewHTTPError(http.StatusNotFound, "File not found")
		}
		defer file.Close()

		// Determine MIME type based on file extension
		ext := filepath.Ext(path)
		mimeType := mime.TypeByExtension(ext)
		if mimeType == "" {
			mimeType = "application/octet-stream" // Fallback MIME type
		}

		content, err := io.ReadAll(file)
		if err != nil {
			u.logger.Error("Failed to read static file", zap.String("path", filePath), zap.Error(err))
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to read file")
		}

		return c.Blob(http.StatusOK, mimeType, content)
	})

	plannerController.RegisterRoutes(e)

	// WebSocket endpoint for real-time updates
	e.GET("/ws", u.handleWebSocket)

	api := e.Group("/api")
	taskController.RegisterRoutes(api)

	u.logger.Info("Starting HTTP server", zap.String("addr", addr))
	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func renderMarkdown(markdown string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := goldmark.New(goldmark.WithExtensions(gfmext.GFM)).Convert([]byte(markdown), &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

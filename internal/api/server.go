// Package api handles HTTP and WebSocket API endpoints
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/thereceipt/cover-engine/internal/coverformat"
	"github.com/thereceipt/cover-engine/internal/export"
	"github.com/thereceipt/cover-engine/internal/geometry"
	"github.com/thereceipt/cover-engine/internal/jobs"
	"github.com/thereceipt/cover-engine/internal/layout"
	"github.com/thereceipt/cover-engine/internal/logging"
	"github.com/thereceipt/cover-engine/internal/pipeline"
	"github.com/thereceipt/cover-engine/internal/preview"
	"github.com/thereceipt/cover-engine/internal/renderer"
)

// Server is the API server
type Server struct {
	router   *gin.Engine
	pipeline *pipeline.Pipeline
	queue    *jobs.Queue
	hub      *Hub
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// Option configures a Server.
type Option func(*Server)

// WithHub sets the hub that tracks WebSocket clients. Pass the same hub to
// the job queue's notify callback so job updates reach clients.
func WithHub(h *Hub) Option {
	return func(s *Server) { s.hub = h }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// NewServer creates a new API server
func NewServer(p *pipeline.Pipeline, q *jobs.Queue, opts ...Option) *Server {
	gin.SetMode(gin.ReleaseMode)

	server := &Server{
		pipeline: p,
		queue:    q,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins
			},
		},
	}
	for _, opt := range opts {
		opt(server)
	}
	server.logger = logging.OrDiscard(server.logger)
	if server.hub == nil {
		server.hub = NewHub(server.logger)
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(server.logger), corsMiddleware())
	server.router = router

	server.setupRoutes()

	return server
}

func (s *Server) setupRoutes() {
	s.router.POST("/geometry", s.handleGeometry)
	s.router.POST("/blurb/solve", s.handleSolveBlurb)
	s.router.POST("/preview", s.handlePreview)
	s.router.POST("/render", s.handleRender)

	// Export jobs
	s.router.POST("/exports", s.handleSubmitExport)
	s.router.GET("/exports", s.handleGetExports)
	s.router.GET("/exports/:id", s.handleGetExport)
	s.router.GET("/exports/:id/file", s.handleGetExportFile)
	s.router.DELETE("/exports/completed", s.handleClearExports)

	// WebSocket
	s.router.GET("/ws", s.handleWebSocket)

	// Health check
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "clients": s.hub.Count()})
	})
}

type rectJSON struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"width"`
	H float64 `json:"height"`
}

func toRect(r geometry.Rect) rectJSON {
	return rectJSON{X: r.X, Y: r.Y, W: r.W, H: r.H}
}

// GeometryResponse is the body of POST /geometry.
type GeometryResponse struct {
	PPI          float64 `json:"ppi"`
	TrimWidthIn  float64 `json:"trimWidthIn"`
	TrimHeightIn float64 `json:"trimHeightIn"`
	SpineWidthMM float64 `json:"spineWidthMM"`
	SpineWidthIn float64 `json:"spineWidthIn"`
	Bleed        float64 `json:"bleed"`
	CanvasWidth  int     `json:"canvasWidth"`
	CanvasHeight int     `json:"canvasHeight"`

	Panels  map[string]rectJSON `json:"panels"`
	Trim    map[string]rectJSON `json:"trim"`
	Safe    map[string]rectJSON `json:"safe"`
	Barcode rectJSON            `json:"barcode"`
	Folds   []float64           `json:"folds"`
}

func newGeometryResponse(g geometry.Geometry) GeometryResponse {
	w, h := g.CanvasSize()
	xs, _ := g.FoldLines()
	return GeometryResponse{
		PPI:          g.PPI,
		TrimWidthIn:  g.TrimWidthIn,
		TrimHeightIn: g.TrimHeightIn,
		SpineWidthMM: g.SpineWidthMM,
		SpineWidthIn: g.SpineWidthInches(),
		Bleed:        g.Bleed,
		CanvasWidth:  w,
		CanvasHeight: h,
		Panels: map[string]rectJSON{
			"back":  toRect(g.BackPanel()),
			"spine": toRect(g.SpinePanel()),
			"front": toRect(g.FrontPanel()),
		},
		Trim: map[string]rectJSON{
			"back":  toRect(g.BackTrim()),
			"spine": toRect(g.SpineTrim()),
			"front": toRect(g.FrontTrim()),
		},
		Safe: map[string]rectJSON{
			"back":  toRect(g.BackSafe()),
			"spine": toRect(g.SpineSafe()),
			"front": toRect(g.FrontSafe()),
		},
		Barcode: toRect(g.Barcode()),
		Folds:   xs[:],
	}
}

// handleGeometry computes the layout of a book at a resolution
func (s *Server) handleGeometry(c *gin.Context) {
	var req struct {
		Book coverformat.BookMetadata `json:"bookDetails"`
		DPI  float64                  `json:"dpi"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}
	if err := coverformat.ValidateBook(&req.Book); err != nil {
		c.JSON(400, gin.H{"error": fmt.Sprintf("invalid book: %v", err)})
		return
	}

	if err := export.CheckDPI(req.DPI); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}
	dpi := req.DPI
	if dpi == 0 {
		dpi = geometry.PreviewPPI
	}

	c.JSON(200, newGeometryResponse(s.pipeline.Geometry(req.Book, dpi)))
}

// handleSolveBlurb places or corrects a blurb box against the barcode region
func (s *Server) handleSolveBlurb(c *gin.Context) {
	var req struct {
		TrimSize       string  `json:"trimSize"`
		Sizing         string  `json:"sizing"`
		HeightPercent  float64 `json:"heightPercent"`
		YOffsetPercent float64 `json:"yOffsetPercent"`
		Edited         string  `json:"edited"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	w, h, ok := geometry.ParseTrimSize(req.TrimSize)
	if !ok {
		c.JSON(400, gin.H{"error": fmt.Sprintf("invalid trim size: %q", req.TrimSize)})
		return
	}
	constraints := layout.NewBarcodeConstraints(w, h)

	var (
		box  layout.Box
		safe bool
	)
	switch req.Sizing {
	case "", string(coverformat.SizingAuto):
		box, safe = constraints.AutoPlace(req.HeightPercent)
	case string(coverformat.SizingManual):
		edited := layout.Field(req.Edited)
		if edited == "" {
			edited = layout.FieldHeight
		}
		if edited != layout.FieldHeight && edited != layout.FieldYOffset {
			c.JSON(400, gin.H{"error": fmt.Sprintf("invalid edited field: %q (must be height or yOffset)", req.Edited)})
			return
		}
		box, safe = constraints.SolveManual(layout.Box{HeightPercent: req.HeightPercent, YOffsetPercent: req.YOffsetPercent}, edited)
	default:
		c.JSON(400, gin.H{"error": fmt.Sprintf("invalid sizing: %q (must be auto or manual)", req.Sizing)})
		return
	}

	c.JSON(200, gin.H{
		"box":  box,
		"safe": safe,
		"constraints": gin.H{
			"barcodeHeightPercent":   constraints.HeightPercent,
			"barcodeMarginPercent":   constraints.MarginPercent,
			"topBoundaryPercent":     constraints.TopBoundaryPercent,
			"maxSafeVerticalPercent": constraints.MaxSafeVerticalPercent,
		},
	})
}

// parseProject decodes, migrates and validates an embedded project
func parseProject(raw json.RawMessage) (*coverformat.Project, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, errors.New("project is required")
	}
	project, err := coverformat.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid project: %w", err)
	}
	return project, nil
}

// handlePreview renders the interactive view as PNG
func (s *Server) handlePreview(c *gin.Context) {
	var req struct {
		Project    json.RawMessage `json:"project"`
		View       *preview.View   `json:"view"`
		Width      int             `json:"width"`
		Height     int             `json:"height"`
		Guidelines bool            `json:"guidelines"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}
	project, err := parseProject(req.Project)
	if err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	view := preview.NewView()
	if req.View != nil {
		view = *req.View
	}
	if req.Width != 0 || req.Height != 0 {
		if err := view.SetViewport(float64(req.Width), float64(req.Height)); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
	}

	data, err := s.pipeline.PreviewPNG(c.Request.Context(), project, view.Target(), req.Guidelines)
	if err != nil {
		c.JSON(renderErrorStatus(err), gin.H{"error": fmt.Sprintf("failed to render preview: %v", err)})
		return
	}

	c.Data(200, export.PNG.ContentType(), data)
}

type exportRequest struct {
	Project json.RawMessage `json:"project"`
	Format  string          `json:"format"`
	DPI     float64         `json:"dpi"`
}

func (r exportRequest) parse() (*coverformat.Project, export.Format, error) {
	format, err := export.ParseFormat(r.Format)
	if err != nil {
		return nil, "", err
	}
	if err := export.CheckDPI(r.DPI); err != nil {
		return nil, "", err
	}
	project, err := parseProject(r.Project)
	if err != nil {
		return nil, "", err
	}
	return project, format, nil
}

// handleRender exports a cover synchronously
func (s *Server) handleRender(c *gin.Context) {
	var req exportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}
	project, format, err := req.parse()
	if err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	result, err := s.pipeline.Export(c.Request.Context(), project, format, req.DPI)
	if err != nil {
		c.JSON(renderErrorStatus(err), gin.H{"error": fmt.Sprintf("failed to render cover: %v", err)})
		return
	}

	sendFile(c, format, result)
}

// handleSubmitExport queues an export job
func (s *Server) handleSubmitExport(c *gin.Context) {
	var req exportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}
	project, format, err := req.parse()
	if err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	jobID := s.queue.Enqueue(jobs.Request{Project: *project, Format: format, DPI: req.DPI})

	c.JSON(202, gin.H{
		"success": true,
		"job_id":  jobID,
	})
}

// handleGetExports returns all export jobs
func (s *Server) handleGetExports(c *gin.Context) {
	c.JSON(200, gin.H{"jobs": s.queue.GetAllJobs()})
}

// handleGetExport returns a specific export job
func (s *Server) handleGetExport(c *gin.Context) {
	job, err := s.queue.GetJob(c.Param("id"))
	if err != nil {
		c.JSON(404, gin.H{"error": "job not found"})
		return
	}

	c.JSON(200, job)
}

// handleGetExportFile downloads the file of a completed export job
func (s *Server) handleGetExportFile(c *gin.Context) {
	id := c.Param("id")

	job, err := s.queue.GetJob(id)
	if err != nil {
		c.JSON(404, gin.H{"error": "job not found"})
		return
	}

	result, err := s.queue.Result(id)
	switch {
	case errors.Is(err, jobs.ErrNotFound):
		c.JSON(404, gin.H{"error": "job not found"})
		return
	case errors.Is(err, jobs.ErrNotReady):
		c.JSON(409, gin.H{"error": err.Error(), "status": job.Status})
		return
	case err != nil:
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}

	sendFile(c, job.Format, result)
}

// handleClearExports removes completed export jobs
func (s *Server) handleClearExports(c *gin.Context) {
	c.JSON(200, gin.H{"removed": s.queue.ClearCompleted()})
}

// renderErrorStatus maps a render failure to a status code. Requests that
// could never render are the client's fault.
func renderErrorStatus(err error) int {
	if errors.Is(err, renderer.ErrCanvasTooLarge) || errors.Is(err, export.ErrDPIOutOfRange) {
		return 400
	}
	return 500
}

func sendFile(c *gin.Context, format export.Format, result jobs.Result) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(200, format.ContentType(), result.Data)
}

// Handler returns the HTTP handler, for embedding in an http.Server
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run starts the API server
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/df07/go-progressive-pathtracer/pkg/renderer"
)

// StatsResponse represents render statistics
type StatsResponse struct {
	Generation        string  `json:"generation"`
	Width             int     `json:"width"`
	Height            int     `json:"height"`
	Samples           int     `json:"samples"`
	Progress          float64 `json:"progress"`
	ScanLinePercent   float64 `json:"scanLinePercent"`
	ComputationTime   string  `json:"computationTime"` // "MMm SS.mmms"
	ElapsedTime       string  `json:"elapsedTime"`
	ComputationTimeMs int64   `json:"computationTimeMs"`
	ElapsedTimeMs     int64   `json:"elapsedTimeMs"`
	Paused            bool    `json:"paused"`
}

func newStatsResponse(stats renderer.RenderStats) StatsResponse {
	return StatsResponse{
		Generation:        stats.Generation,
		Width:             stats.Width,
		Height:            stats.Height,
		Samples:           stats.Samples,
		Progress:          stats.Progress,
		ScanLinePercent:   stats.ScanLinePercent,
		ComputationTime:   renderer.FormatDuration(stats.ComputationTime),
		ElapsedTime:       renderer.FormatDuration(stats.ElapsedTime),
		ComputationTimeMs: stats.ComputationTime.Milliseconds(),
		ElapsedTimeMs:     stats.ElapsedTime.Milliseconds(),
		Paused:            stats.Paused,
	}
}

var contentTypes = map[string]string{
	renderer.FormatPNG:  "image/png",
	renderer.FormatBMP:  "image/bmp",
	renderer.FormatTIFF: "image/tiff",
}

// handleFrame encodes the current image at output size
func (s *Server) handleFrame(c echo.Context) error {
	format := c.QueryParam("format")
	if format == "" {
		format = renderer.FormatPNG
	}
	contentType, ok := contentTypes[format]
	if !ok {
		return errorJSON(c, http.StatusBadRequest, fmt.Sprintf("unsupported format %q", format))
	}

	img, stats := s.session.Snapshot()

	var buf bytes.Buffer
	if err := renderer.WriteImage(&buf, img, format); err != nil {
		return err
	}

	header := c.Response().Header()
	header.Set("Cache-Control", "no-cache")
	header.Set("X-Render-Samples", strconv.Itoa(stats.Samples))
	header.Set("X-Render-Generation", stats.Generation)
	return c.Blob(http.StatusOK, contentType, buf.Bytes())
}

func (s *Server) handleStats(c echo.Context) error {
	return c.JSON(http.StatusOK, newStatsResponse(s.session.Stats()))
}

func (s *Server) handleReset(c echo.Context) error {
	s.session.Reset()
	return c.JSON(http.StatusOK, newStatsResponse(s.session.Stats()))
}

// handleEvents streams "stats" events every EventInterval and forwards log
// entries as "console" events until the client disconnects
func (s *Server) handleEvents(c echo.Context) error {
	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	messages, unsubscribe := s.console.Subscribe(100)
	defer unsubscribe()

	interval := s.options.EventInterval
	if interval <= 0 {
		interval = DefaultOptions().EventInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ctx := c.Request().Context()
	if err := s.sendStats(c); err != nil {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-messages:
			if err := sendSSEEvent(c, "console", msg); err != nil {
				return nil
			}
		case <-ticker.C:
			if err := s.sendStats(c); err != nil {
				s.logger.Debug("event stream closed", zap.Error(err))
				return nil
			}
		}
	}
}

func (s *Server) sendStats(c echo.Context) error {
	return sendSSEEvent(c, "stats", newStatsResponse(s.session.Stats()))
}

// sendSSEEvent writes one JSON event and flushes it
func sendSSEEvent(c echo.Context, event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	w := c.Response()
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	w.Flush()
	return nil
}

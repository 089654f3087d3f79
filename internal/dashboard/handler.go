// Package dashboard bridges engine refresh signals onto the WebSocket server.
package dashboard

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/ClaytonHunt/cascade/internal/engine"
	"github.com/ClaytonHunt/cascade/internal/hierarchy"
	"github.com/ClaytonHunt/cascade/internal/record"
)

// Handler subscribes to engine refresh signals and formats them as dashboard
// messages.
type Handler struct {
	server *Server
	engine *engine.Engine
	logger *log.Logger
}

// NewHandler creates a handler feeding the given server from the engine.
func NewHandler(server *Server, eng *engine.Engine, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{
		server: server,
		engine: eng,
		logger: logger,
	}
}

// Watch consumes refresh signals until ctx is cancelled. Each completed cycle
// produces a refresh_complete message, one status_change per rewritten file,
// and a stats snapshot of the new forest.
func (h *Handler) Watch(ctx context.Context) {
	signals := h.engine.Subscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case <-signals:
			h.onRefresh()
		}
	}
}

func (h *Handler) onRefresh() {
	sum := h.engine.LastSummary()
	h.logger.Printf("Refresh complete: %d records, %d writes in %v",
		sum.Records, sum.Propagation.Writes, sum.Duration)

	h.broadcast(MessageTypeRefreshComplete, RefreshCompleteData{
		Generation: h.engine.Generation(),
		Records:    sum.Records,
		Writes:     sum.Propagation.Writes,
		Skipped:    sum.Propagation.Skipped,
		Duration:   sum.Duration,
	})

	for _, path := range sum.Propagation.Touched {
		h.broadcast(MessageTypeStatusChange, StatusChangeData{Path: path})
	}

	h.broadcast(MessageTypeStats, h.collectStats())
}

// collectStats walks the current forest and counts records per status.
func (h *Handler) collectStats() StatsData {
	stats := StatsData{ByStatus: make(map[string]int)}

	roots := h.engine.Roots()
	stats.Roots = len(roots)
	for _, root := range roots {
		root.Walk(func(n *hierarchy.Node) {
			stats.Total++
			stats.ByStatus[string(n.Record.Status)]++
			if n.Record.Status == record.StatusCompleted {
				stats.Completed++
			}
		})
	}
	return stats
}

func (h *Handler) broadcast(typ MessageType, data interface{}) {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		h.logger.Printf("Failed to marshal %s data: %v", typ, err)
		return
	}
	h.server.Broadcast(Message{
		Type:      typ,
		Timestamp: time.Now(),
		Data:      dataJSON,
	})
}

package dashboard

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/ClaytonHunt/cascade/internal/engine"
)

func testConfig() *Config {
	return &Config{
		Addr:   "127.0.0.1:0", // random available port
		Logger: log.New(os.Stderr, "[test] ", log.LstdFlags),
	}
}

func startServer(t *testing.T) *Server {
	t.Helper()
	server := NewServer(testConfig())
	if err := server.Start(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	t.Cleanup(func() { _ = server.Stop() })
	time.Sleep(100 * time.Millisecond)
	return server
}

// dial connects a client and consumes the welcome message.
func dial(t *testing.T, ctx context.Context, server *Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws://" + server.GetAddr() + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect WebSocket: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })

	if _, _, err := conn.Read(ctx); err != nil {
		t.Fatalf("Failed to read welcome message: %v", err)
	}
	return conn
}

func readMessage(t *testing.T, ctx context.Context, conn *websocket.Conn) Message {
	t.Helper()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Failed to read message: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Failed to unmarshal message: %v", err)
	}
	return msg
}

func TestServerStartStop(t *testing.T) {
	server := NewServer(testConfig())

	if err := server.Start(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	if server.GetAddr() == "" {
		t.Fatal("Server address is empty")
	}

	if err := server.Stop(); err != nil {
		t.Fatalf("Failed to stop server: %v", err)
	}
}

func TestWebSocketConnection(t *testing.T) {
	server := startServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	dial(t, ctx, server)

	if count := server.ClientCount(); count != 1 {
		t.Errorf("Expected 1 client, got %d", count)
	}
}

func TestMultipleClients(t *testing.T) {
	server := startServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	numClients := 3
	for i := 0; i < numClients; i++ {
		dial(t, ctx, server)
	}

	if count := server.ClientCount(); count != numClients {
		t.Errorf("Expected %d clients, got %d", numClients, count)
	}
}

func TestMessageBroadcast(t *testing.T) {
	server := startServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dial(t, ctx, server)

	testData := RefreshCompleteData{
		Generation: 7,
		Records:    42,
		Writes:     3,
		Duration:   50 * time.Millisecond,
	}
	dataJSON, _ := json.Marshal(testData)
	server.Broadcast(Message{
		Type:      MessageTypeRefreshComplete,
		Timestamp: time.Now(),
		Data:      dataJSON,
	})

	received := readMessage(t, ctx, conn)
	if received.Type != MessageTypeRefreshComplete {
		t.Errorf("Expected message type %s, got %s", MessageTypeRefreshComplete, received.Type)
	}

	var receivedData RefreshCompleteData
	if err := json.Unmarshal(received.Data, &receivedData); err != nil {
		t.Fatalf("Failed to unmarshal refresh data: %v", err)
	}
	if receivedData.Generation != testData.Generation || receivedData.Records != testData.Records {
		t.Errorf("Refresh data mismatch: got %+v, want %+v", receivedData, testData)
	}
}

func TestHandlerRefreshEvents(t *testing.T) {
	dir := t.TempDir()

	write := func(name, content string) {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("MkdirAll failed: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
	}
	recordFile := func(id, kind, status string) string {
		return strings.Join([]string{
			"---",
			"id: " + id,
			"title: " + id,
			"kind: " + kind,
			"status: " + status,
			"updated: 2026-08-01",
			"---",
			"",
		}, "\n")
	}
	write("F20-login.md", recordFile("F20", "feature", "in-progress"))
	write("F20-login/S1-a.md", recordFile("S1", "story", "completed"))

	eng, err := engine.New(engine.Config{
		Dir:    dir,
		Logger: log.New(io.Discard, "", 0),
	})
	if err != nil {
		t.Fatalf("engine.New failed: %v", err)
	}

	server := startServer(t)
	handler := NewHandler(server, eng, log.New(io.Discard, "", 0))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dial(t, ctx, server)

	go handler.Watch(ctx)
	time.Sleep(50 * time.Millisecond)

	// One cycle: the feature completes, so the stream carries
	// refresh_complete, one status_change, then stats.
	eng.Refresh()

	msg := readMessage(t, ctx, conn)
	if msg.Type != MessageTypeRefreshComplete {
		t.Fatalf("Expected message type %s, got %s", MessageTypeRefreshComplete, msg.Type)
	}
	var refresh RefreshCompleteData
	if err := json.Unmarshal(msg.Data, &refresh); err != nil {
		t.Fatalf("Failed to unmarshal refresh data: %v", err)
	}
	if refresh.Records != 2 || refresh.Writes != 1 {
		t.Errorf("Refresh data = %+v, want 2 records and 1 write", refresh)
	}

	msg = readMessage(t, ctx, conn)
	if msg.Type != MessageTypeStatusChange {
		t.Fatalf("Expected message type %s, got %s", MessageTypeStatusChange, msg.Type)
	}

	msg = readMessage(t, ctx, conn)
	if msg.Type != MessageTypeStats {
		t.Fatalf("Expected message type %s, got %s", MessageTypeStats, msg.Type)
	}
	var stats StatsData
	if err := json.Unmarshal(msg.Data, &stats); err != nil {
		t.Fatalf("Failed to unmarshal stats data: %v", err)
	}
	if stats.Total != 2 || stats.Completed != 2 {
		t.Errorf("Stats = %+v, want 2 total and 2 completed", stats)
	}
}

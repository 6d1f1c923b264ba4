package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerURL string `env:"CHAT_SERVER_URL,default=ws://localhost:3001/ws"`
	Room      string `env:"CHAT_ROOM,default=chat_room"`
	Username  string `env:"CHAT_USERNAME"`
	Token     string `env:"CHAT_TOKEN"`
	LogLevel  string `env:"LOG_LEVEL,default=INFO"`
}

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type systemMessage struct {
	Text string `json:"text"`
	Type string `json:"type"`
}

type chatMessage struct {
	MessageID string `json:"messageId"`
	Username  string `json:"username"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
	RiskLevel string `json:"riskLevel"`
}

type riskUpdate struct {
	MessageID    string   `json:"messageId"`
	RiskLevel    string   `json:"riskLevel"`
	RiskScore    int      `json:"riskScore"`
	Confidence   int      `json:"confidence"`
	ShouldPause  bool     `json:"shouldPause"`
	Explanations []string `json:"explanations"`
}

func main() {
	// The main function manages the OS exit code based on run()'s return.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run handles the websocket client lifecycle, configuration loading, and
// the read and write loops.
func run() (int, error) {
	// 1. Load configuration from environment variables.
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Setup context to handle termination signals (Ctrl+C).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Connect to the chat server.
	target := fmt.Sprintf("%s?room=%s&username=%s&token=%s",
		config.ServerURL,
		url.QueryEscape(config.Room),
		url.QueryEscape(config.Username),
		url.QueryEscape(config.Token),
	)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to server at %s: %w", config.ServerURL, err)
	}
	defer func() {
		log.Info("Closing connection...")
		_ = conn.Close()
	}()

	color.Green.Printf(">>> Connected to %s, room %q (Ctrl+C to quit)\n", config.ServerURL, config.Room)

	// Risk counters for the exit summary.
	var mu sync.Mutex
	counts := map[string]int{}

	readDone := make(chan error, 1)
	go func() {
		readDone <- readLoop(conn, &mu, counts)
	}()

	// 4. Send loop: every stdin line becomes a chat message.
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			text := scanner.Text()
			if text == "" {
				continue
			}
			data, _ := json.Marshal(map[string]string{"text": text})
			frame, _ := json.Marshal(envelope{Event: "chat_message", Data: data})
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		}
	}()

	// 5. Block until the user quits or the server hangs up.
	select {
	case <-ctx.Done():
		log.Info("Stopping client...")
	case err = <-readDone:
		if err != nil && ctx.Err() == nil {
			printSummary(&mu, counts)
			return exitRuntime, fmt.Errorf("connection lost: %w", err)
		}
	}

	printSummary(&mu, counts)
	return exitOK, nil
}

func readLoop(conn *websocket.Conn, mu *sync.Mutex, counts map[string]int) error {
	for {
		var frame envelope
		if err := conn.ReadJSON(&frame); err != nil {
			return err
		}

		switch frame.Event {
		case "system_message":
			var payload systemMessage
			if json.Unmarshal(frame.Data, &payload) == nil {
				color.Gray.Printf("* %s\n", payload.Text)
			}
		case "chat_message":
			var payload chatMessage
			if json.Unmarshal(frame.Data, &payload) == nil {
				at := time.UnixMilli(payload.Timestamp).Format(time.TimeOnly)
				fmt.Printf("[%s] %s: %s %s\n",
					at, payload.Username, payload.Text, color.Gray.Render("("+payload.RiskLevel+")"))
			}
		case "risk_update":
			var payload riskUpdate
			if json.Unmarshal(frame.Data, &payload) == nil {
				mu.Lock()
				counts[payload.RiskLevel]++
				mu.Unlock()
				line := fmt.Sprintf("risk %s -> %s (%d%%)",
					payload.MessageID, payload.RiskLevel, payload.RiskScore)
				if payload.ShouldPause {
					line += " PAUSE"
				}
				riskColor(payload.RiskLevel).Println(line)
			}
		case "error":
			color.Red.Printf("server error: %s\n", string(frame.Data))
		}
	}
}

func riskColor(level string) color.Color {
	switch level {
	case "low":
		return color.Green
	case "medium":
		return color.Yellow
	case "high":
		return color.Red
	case "error":
		return color.Magenta
	default:
		return color.Gray
	}
}

func printSummary(mu *sync.Mutex, counts map[string]int) {
	mu.Lock()
	defer mu.Unlock()
	if len(counts) == 0 {
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Risk level", "Messages"})
	table.SetAutoFormatHeaders(true)
	table.SetBorder(false)
	for _, level := range []string{"low", "medium", "high", "error"} {
		if n, ok := counts[level]; ok {
			table.Append([]string{level, fmt.Sprintf("%d", n)})
		}
	}
	table.Render()
}

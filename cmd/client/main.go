package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerAddress string `env:"CHAT_SERVER_ADDR,default=localhost:8080"`
	Email         string `env:"CHAT_EMAIL,required=true"`
	Password      string `env:"CHAT_PASSWORD,required=true"`
	LogLevel      string `env:"LOG_LEVEL,default=info"`
}

type wireEnvelope struct {
	Kind      string `json:"kind"`
	Sender    string `json:"sender"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

type clientFrame struct {
	Kind      string `json:"kind"`
	Content   string `json:"content"`
	Recipient string `json:"recipient,omitempty"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run handles login, the websocket lifecycle and the interactive loop.
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

	// 3. Exchange credentials for a token.
	token, err := login(config)
	if err != nil {
		return exitRuntime, err
	}

	// 4. Open the websocket with the token.
	wsURL := fmt.Sprintf("ws://%s/ws?token=%s", config.ServerAddress, url.QueryEscape(token))
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to %s: %w", config.ServerAddress, err)
	}
	defer conn.Close()
	log.Info("Connected", "server", config.ServerAddress)

	// 5. Print incoming envelopes until the server closes the stream.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var envelope wireEnvelope
			if err := conn.ReadJSON(&envelope); err != nil {
				return
			}
			render(envelope)
		}
	}()

	// 6. Read stdin lines: plain text is CHAT, "/msg <user> <text>" is PRIVATE.
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			frame, ok := parseLine(scanner.Text())
			if !ok {
				continue
			}
			if err := conn.WriteJSON(frame); err != nil {
				return
			}
		}
	}()

	select {
	case <-ctx.Done():
	case <-done:
	}
	return exitOK, nil
}

func login(config Config) (string, error) {
	body, _ := json.Marshal(map[string]string{
		"email":    config.Email,
		"password": config.Password,
	})
	resp, err := http.Post(
		fmt.Sprintf("http://%s/login", config.ServerAddress),
		"application/json", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login rejected with status %d", resp.StatusCode)
	}

	var payload struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	return payload.Token, nil
}

func parseLine(line string) (clientFrame, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return clientFrame{}, false
	}
	if strings.HasPrefix(line, "/msg ") {
		parts := strings.SplitN(strings.TrimPrefix(line, "/msg "), " ", 2)
		if len(parts) != 2 {
			color.Yellow.Println("usage: /msg <user> <text>")
			return clientFrame{}, false
		}
		return clientFrame{Kind: "PRIVATE", Recipient: parts[0], Content: parts[1]}, true
	}
	return clientFrame{Kind: "CHAT", Content: line}, true
}

func render(e wireEnvelope) {
	switch e.Kind {
	case "JOIN":
		color.Green.Printf("* %s\n", e.Content)
	case "LEAVE":
		color.Yellow.Printf("* %s\n", e.Content)
	case "PRIVATE":
		color.Magenta.Printf("[private] %s: %s\n", e.Sender, e.Content)
	case "SYSTEM":
		color.Cyan.Printf("[system] %s\n", e.Content)
	default:
		color.Printf("%s: %s\n", e.Sender, e.Content)
	}
}

package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"stickman_shake/internal/logger"
	"stickman_shake/internal/ws"

	"github.com/gorilla/websocket"
)

// Signs in against a running server, shakes the pointer over the websocket and
// prints every message it gets back.
func main() {
	addr := flag.String("addr", "127.0.0.1:8080", "server address")
	email := flag.String("email", "smoke@example.com", "account email")
	password := flag.String("password", "smoke1", "account password")
	moves := flag.Int("moves", 20, "pointer moves of 50px to send")
	flag.Parse()
	logger.Init("debug", false)

	token, err := signIn(*addr, *email, *password)
	if err != nil {
		logger.Fatal("sign in failed", "error", err)
	}

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws", RawQuery: "token=" + url.QueryEscape(token)}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		logger.Fatal("dial failed", "url", u.String(), "error", err)
	}
	defer conn.Close()

	go func() {
		for i := 0; i < *moves; i++ {
			b, _ := json.Marshal(ws.Envelope{Type: ws.MsgMove, Data: json.RawMessage(`{"dx":30,"dy":40}`)})
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				logger.Error("write failed", "error", err)
				return
			}
			time.Sleep(50 * time.Millisecond)
		}
		b, _ := json.Marshal(ws.Envelope{Type: "buy_upgrade", RequestID: "smoke-1", Data: json.RawMessage(`{"id":"shake"}`)})
		_ = conn.WriteMessage(websocket.TextMessage, b)
	}()

	deadline := time.Now().Add(time.Duration(*moves)*50*time.Millisecond + 5*time.Second)
	for time.Now().Before(deadline) {
		_ = conn.SetReadDeadline(deadline)
		_, msg, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var env ws.Envelope
		_ = json.Unmarshal(msg, &env)
		logger.Info("recv", "type", env.Type, "request_id", env.RequestID, "data", string(env.Data))
		if env.Type == ws.MsgActionResult {
			break
		}
	}

	logger.Info("smoke test finished")
}

func signIn(addr, email, password string) (string, error) {
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	for _, path := range []string{"/api/v1/auth/signin", "/api/v1/auth/signup"} {
		resp, err := http.Post("http://"+addr+path, "application/json", bytes.NewReader(body))
		if err != nil {
			return "", err
		}
		var res struct {
			Token string `json:"token"`
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&res)
		resp.Body.Close()
		if res.Token != "" {
			return res.Token, nil
		}
		logger.Debug("auth attempt failed", "path", path, "status", resp.StatusCode, "error", res.Error)
	}
	return "", fmt.Errorf("could not sign in as %s", email)
}

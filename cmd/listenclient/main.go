package main

import (
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

type streamMessage struct {
	Type       string `json:"type"`
	Seq        uint64 `json:"seq"`
	Timestamp  int64  `json:"timestamp"`
	Text       string `json:"text"`
	SourceText string `json:"sourceText"`
	Fallback   bool   `json:"fallback"`
}

// liveWidth caps the rewritten caption line so it stays on one row.
const liveWidth = 100

func main() {
	serverURL := flag.String("server", "ws://localhost:8080", "Service WebSocket base URL")
	sessionID := flag.String("session", "", "Session to listen to")
	showSource := flag.Bool("show-source", false, "Print source text under each translated line")
	flag.Parse()

	if *sessionID == "" {
		log.Fatal("A -session ID is required")
	}

	url := strings.TrimRight(*serverURL, "/") + "/v1/listen/" + *sessionID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	log.Printf("Listening to session %s", *sessionID)

	var liveLen int
	for {
		var msg streamMessage
		if err := conn.ReadJSON(&msg); err != nil {
			clearLive(&liveLen)
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Println("Session ended")
				return
			}
			log.Fatalf("Read failed: %v", err)
		}

		switch msg.Type {
		case "live":
			renderLive(&liveLen, msg.Text)
		case "committed":
			clearLive(&liveLen)
			at := time.UnixMilli(msg.Timestamp).Format("15:04:05")
			line := msg.Text
			if msg.Fallback {
				line += " [untranslated]"
			}
			fmt.Printf("[%s] %s\n", at, line)
			if *showSource && msg.SourceText != "" && msg.SourceText != msg.Text {
				fmt.Printf("          %s\n", msg.SourceText)
			}
		}
	}
}

// renderLive rewrites the in-progress caption in place.
func renderLive(liveLen *int, text string) {
	if len(text) > liveWidth {
		text = "..." + text[len(text)-liveWidth+3:]
	}
	pad := ""
	if *liveLen > len(text) {
		pad = strings.Repeat(" ", *liveLen-len(text))
	}
	fmt.Printf("\r%s%s", text, pad)
	if pad != "" {
		fmt.Print(strings.Repeat("\b", len(pad)))
	}
	*liveLen = len(text)
}

func clearLive(liveLen *int) {
	if *liveLen == 0 {
		return
	}
	fmt.Printf("\r%s\r", strings.Repeat(" ", *liveLen))
	*liveLen = 0
}

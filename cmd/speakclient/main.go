package main

import (
	"encoding/binary"
	"encoding/json"
	"flag"
	"io"
	"log"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

// WAV header is 44 bytes for standard PCM files
const wavHeaderSize = 44

// Audio is paced at real time in 100ms chunks, sized from the WAV header.
const chunkIntervalMs = 100

type controlFrame struct {
	Type           string `json:"type"`
	SessionID      string `json:"sessionId,omitempty"`
	SourceLanguage string `json:"sourceLanguage,omitempty"`
	TargetLanguage string `json:"targetLanguage,omitempty"`
	LivePartials   *bool  `json:"livePartials,omitempty"`
	Error          string `json:"error,omitempty"`
}

func main() {
	audioFile := flag.String("audio", "../../testdata/sample-16khz.wav", "Path to WAV file (PCM 16-bit mono)")
	serverURL := flag.String("server", "ws://localhost:8080/v1/stream", "Speaker WebSocket URL")
	sourceLang := flag.String("source", "", "Source language override (e.g. en-US)")
	targetLang := flag.String("target", "", "Target language override (e.g. es)")
	livePartials := flag.Bool("live-partials", false, "Request translated live partials")
	flag.Parse()

	// Open audio file
	f, err := os.Open(*audioFile)
	if err != nil {
		log.Fatalf("Failed to open audio file: %v", err)
	}
	defer f.Close()

	// Read and validate WAV header
	header := make([]byte, wavHeaderSize)
	if _, err := io.ReadFull(f, header); err != nil {
		log.Fatalf("Failed to read WAV header: %v", err)
	}

	// Validate it's a WAV file
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		log.Fatal("Not a valid WAV file")
	}

	// Extract audio format info
	audioFormat := binary.LittleEndian.Uint16(header[20:22])
	numChannels := binary.LittleEndian.Uint16(header[22:24])
	sampleRate := binary.LittleEndian.Uint32(header[24:28])
	bitsPerSample := binary.LittleEndian.Uint16(header[34:36])

	log.Printf("WAV file: format=%d channels=%d sampleRate=%d bitsPerSample=%d",
		audioFormat, numChannels, sampleRate, bitsPerSample)

	if audioFormat != 1 { // PCM
		log.Fatal("Only PCM format supported")
	}

	// 100ms of audio per chunk at the file's own rate
	chunkSize := int(sampleRate) * int(numChannels) * int(bitsPerSample) / 8 / 10
	if chunkSize <= 0 {
		log.Fatal("WAV header describes no audio data")
	}

	// Connect and start a session
	conn, _, err := websocket.DefaultDialer.Dial(*serverURL, nil)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	log.Printf("Connected to %s", *serverURL)

	start := controlFrame{
		Type:           "start",
		SourceLanguage: *sourceLang,
		TargetLanguage: *targetLang,
	}
	if *livePartials {
		start.LivePartials = livePartials
	}
	if err := conn.WriteJSON(start); err != nil {
		log.Fatalf("Failed to send start frame: %v", err)
	}

	var started controlFrame
	if err := conn.ReadJSON(&started); err != nil {
		log.Fatalf("Failed to read start reply: %v", err)
	}
	if started.Type != "started" {
		log.Fatalf("Session refused: %s", started.Error)
	}

	log.Printf("Session started: sessionId=%s", started.SessionID)
	log.Printf("Attach a listener with: listenclient -session %s", started.SessionID)

	// Watch for error frames while streaming
	serverErr := make(chan string, 1)
	replies := make(chan controlFrame, 4)
	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				close(replies)
				return
			}
			var frame controlFrame
			if json.Unmarshal(data, &frame) != nil {
				continue
			}
			if frame.Type == "error" {
				select {
				case serverErr <- frame.Error:
				default:
				}
				continue
			}
			replies <- frame
		}
	}()

	// Stream audio in real-time chunks
	audioChunk := make([]byte, chunkSize)
	var totalBytes int64
	var chunkNum int
	startTime := time.Now()

streaming:
	for {
		select {
		case msg := <-serverErr:
			log.Fatalf("Server ended the session: %s", msg)
		default:
		}

		n, err := f.Read(audioChunk)
		if err == io.EOF {
			break streaming
		}
		if err != nil {
			log.Fatalf("Failed to read audio: %v", err)
		}

		chunkNum++
		totalBytes += int64(n)

		if err := conn.WriteMessage(websocket.BinaryMessage, audioChunk[:n]); err != nil {
			log.Fatalf("Failed to send audio frame: %v", err)
		}

		if chunkNum%10 == 0 {
			log.Printf("Sent chunk %d (%d bytes total)", chunkNum, totalBytes)
		}

		// Simulate real-time streaming
		time.Sleep(chunkIntervalMs * time.Millisecond)
	}

	elapsed := time.Since(startTime)
	log.Printf("Finished streaming: %d chunks, %d bytes in %v", chunkNum, totalBytes, elapsed)

	// Stop and wait for the session to flush
	log.Println("Stopping session, waiting for final transcripts...")

	if err := conn.WriteJSON(controlFrame{Type: "stop"}); err != nil {
		log.Fatalf("Failed to send stop frame: %v", err)
	}

	deadline := time.After(10 * time.Second)
	for {
		select {
		case frame, ok := <-replies:
			if !ok {
				log.Fatal("Connection closed before stop was acknowledged")
			}
			if frame.Type == "stopped" {
				log.Printf("Session completed: sessionId=%s", started.SessionID)
				return
			}
		case msg := <-serverErr:
			log.Fatalf("Server ended the session: %s", msg)
		case <-deadline:
			log.Fatal("Timed out waiting for stop acknowledgement")
		}
	}
}

package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/Enes830/testagentset/internal/models"
)

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// Every connection chats in its own session.
	session, err := s.newSession()
	if err != nil {
		sendMessage(conn, Message{Type: "error", Content: err.Error()})
		return
	}

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			log.Printf("Error reading message: %v", err)
			break
		}

		var msg Message
		if err := json.Unmarshal(payload, &msg); err != nil {
			log.Printf("Error unmarshaling message: %v", err)
			continue
		}

		s.handleMessage(conn, session, msg)
	}
}

func (s *Server) handleMessage(conn *websocket.Conn, session Session, msg Message) {
	ctx := context.Background()

	switch msg.Type {
	case "ask", "":
		turn, err := session.Ask(ctx, msg.Content)
		if err != nil {
			sendError(conn, err)
			return
		}
		sendMessage(conn, Message{Type: "context", Data: turn.Context})
		sendMessage(conn, Message{Type: "answer", Content: turn.Answer})

	case "ingest_text":
		s.ingestOverSocket(conn, session, models.Document{
			Source:  models.SourceText,
			Name:    msg.Name,
			Content: msg.Content,
		})

	case "ingest_url":
		s.ingestOverSocket(conn, session, models.Document{
			Source:  models.SourceURL,
			Name:    msg.Name,
			Content: msg.Content,
		})

	case "reset":
		session.Reset()
		sendMessage(conn, Message{Type: "status", Content: "history cleared"})

	default:
		sendMessage(conn, Message{Type: "error", Content: "unknown message type: " + msg.Type})
	}
}

func (s *Server) ingestOverSocket(conn *websocket.Conn, session Session, doc models.Document) {
	ctx := context.Background()

	job, err := session.Ingest(ctx, doc)
	if err != nil {
		sendError(conn, err)
		return
	}
	sendMessage(conn, Message{Type: "status", Content: "ingestion job " + job.ID + " created"})

	job, err = session.WaitForJob(ctx, job.ID, func(j models.IngestJob) {
		sendMessage(conn, Message{Type: "status", Content: "ingestion " + j.Status})
	})
	if err != nil {
		sendError(conn, err)
		return
	}
	sendMessage(conn, Message{Type: "ingested", Content: job.ID, Data: job})
}

func sendMessage(conn *websocket.Conn, msg Message) {
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("Error sending message: %v", err)
	}
}

func sendError(conn *websocket.Conn, err error) {
	sendMessage(conn, Message{Type: "error", Content: err.Error(), Data: errorKind(err)})
}

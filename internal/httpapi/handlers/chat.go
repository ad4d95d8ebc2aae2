package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/atozlegal/legalchat/internal/chat"
	"github.com/atozlegal/legalchat/internal/common"
	"github.com/atozlegal/legalchat/internal/session"
)

func (h *Handler) Ping(c *gin.Context) {
	common.OK(c, gin.H{"pong": true})
}

// GetState returns everything the chat view renders from: the active
// session and the saved-session list.
func (h *Handler) GetState(c *gin.Context) {
	common.OK(c, h.Svc.State())
}

func (h *Handler) ListSessions(c *gin.Context) {
	common.OK(c, gin.H{"sessions": h.Svc.State().Saved})
}

// ResetSession saves the current conversation and starts a fresh one.
func (h *Handler) ResetSession(c *gin.Context) {
	id := h.Svc.ResetSession(c.Request.Context())
	common.OK(c, gin.H{"session_id": id})
}

func (h *Handler) SelectSession(c *gin.Context) {
	id := c.Param("session_id")
	if err := h.Svc.SelectSession(c.Request.Context(), id); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			common.Fail(c, http.StatusNotFound, 40401, "session not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}
	common.OK(c, gin.H{"session_id": id})
}

func (h *Handler) DeleteSession(c *gin.Context) {
	h.Svc.DeleteSession(c.Request.Context(), c.Param("session_id"))
	common.OK(c, nil)
}

type sendMessageReq struct {
	Text string `json:"text" binding:"required"`
}

// SendMessage runs one full turn: optimistic user append, backend ask,
// bot reply appended to the session the question came from.
func (h *Handler) SendMessage(c *gin.Context) {
	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	reply := h.Svc.Send(c.Request.Context(), req.Text)
	common.OK(c, gin.H{"reply": reply})
}

// SendMessageAsync enqueues the ask exchange and returns a job id to poll.
func (h *Handler) SendMessageAsync(c *gin.Context) {
	if h.Async == nil {
		common.Fail(c, http.StatusServiceUnavailable, 50301, chat.ErrAsyncDisabled.Error())
		return
	}

	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	jobID, err := h.Async.EnqueueAsk(c.Request.Context(), req.Text)
	if err != nil {
		h.Log.Error("enqueue ask failed", zap.Error(err))
		common.Fail(c, http.StatusInternalServerError, 50002, "enqueue failed")
		return
	}
	common.OK(c, gin.H{"job_id": jobID})
}

func (h *Handler) GetJob(c *gin.Context) {
	if h.Async == nil {
		common.Fail(c, http.StatusServiceUnavailable, 50301, chat.ErrAsyncDisabled.Error())
		return
	}

	jobID := c.Param("job_id")
	j, err := h.Async.GetJob(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, 40402, "job not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	common.OK(c, gin.H{
		"job": gin.H{
			"id":         j.ID,
			"session_id": j.SessionID,
			"status":     j.Status,
			"reply":      j.Reply,
			"error":      j.Error,
			"created_at": j.CreatedAt,
			"updated_at": j.UpdatedAt,
		},
	})
}

// UploadDocument forwards a PDF to the backend and binds the returned
// document id to the current session.
func (h *Handler) UploadDocument(c *gin.Context) {
	fh, err := c.FormFile("pdf")
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10002, "pdf file required")
		return
	}

	f, err := fh.Open()
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10002, "pdf file unreadable")
		return
	}
	defer f.Close()

	ack := h.Svc.Upload(c.Request.Context(), fh.Filename, f)
	common.OK(c, gin.H{"message": ack})
}

// ExportTranscript renders a session as plain text, WhatsApp style. With
// no session_id param it exports the active session.
func (h *Handler) ExportTranscript(c *gin.Context) {
	id := c.Param("session_id")
	if id == "" {
		id = h.Svc.ActiveSessionID()
	}

	transcript, ok := h.Svc.ExportTranscript(id)
	if !ok {
		common.Fail(c, http.StatusNotFound, 40401, "session not found")
		return
	}
	c.String(http.StatusOK, transcript)
}

// SendMessageStream runs a full turn and plays the reply back over SSE
// with the typewriter reveal.
func (h *Handler) SendMessageStream(c *gin.Context) {
	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	// SSE headers
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // helpful if behind nginx
	c.Status(http.StatusOK)

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		fmt.Fprintf(c.Writer, "event: error\ndata: flusher not supported\n\n")
		return
	}

	writeJSON := func(event string, payload any) {
		b, err := json.Marshal(payload)
		if err != nil {
			fmt.Fprintf(c.Writer, "event: error\ndata: {\"message\":\"json marshal failed\"}\n\n")
			flusher.Flush()
			return
		}
		if event != "" {
			fmt.Fprintf(c.Writer, "event: %s\n", event)
		}
		fmt.Fprintf(c.Writer, "data: %s\n\n", string(b))
		flusher.Flush()
	}

	ctx := c.Request.Context()
	reply := h.Svc.Send(ctx, req.Text)

	chunks := chat.Reveal(ctx, reply, h.TypingInterval)

	// heartbeat keeps proxies from dropping slow reveals
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case ch, ok := <-chunks:
			if !ok {
				writeJSON("done", gin.H{"type": "done", "reply": reply})
				return
			}
			writeJSON("chunk", gin.H{"type": "chunk", "delta": ch})

		case <-ticker.C:
			writeJSON("ping", gin.H{"type": "ping", "ts": time.Now().Unix()})

		case <-ctx.Done():
			return
		}
	}
}

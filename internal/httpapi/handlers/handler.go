package handlers

import (
	"time"

	"go.uber.org/zap"

	"github.com/atozlegal/legalchat/internal/chat"
)

type Handler struct {
	Svc   *chat.Service
	Async *chat.AsyncService // nil when no broker is configured

	TypingInterval time.Duration
	Log            *zap.Logger
}

func NewHandler(svc *chat.Service, async *chat.AsyncService, typingInterval time.Duration, log *zap.Logger) *Handler {
	if typingInterval <= 0 {
		typingInterval = 25 * time.Millisecond
	}
	return &Handler{
		Svc:            svc,
		Async:          async,
		TypingInterval: typingInterval,
		Log:            log,
	}
}

package domain

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// HeartbeatService は観戦接続へ一定間隔で ping を送ります。
// 送信は send に任せ、拒否された ping は数えるだけで再送しない。
type HeartbeatService struct {
	interval time.Duration
	session  *Session
	send     func([]byte) error

	seq     uint16
	sent    atomic.Int64
	dropped atomic.Int64
}

func NewHeartbeatService(interval time.Duration, session *Session, send func([]byte) error) *HeartbeatService {
	return &HeartbeatService{
		interval: interval,
		session:  session,
		send:     send,
	}
}

// Run は ctx が終わるかセッションが閉じられるまで ping を送り続けます。
func (h *HeartbeatService) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if h.session.IsClosed() {
				return
			}
			h.ping(ctx)
		}
	}
}

func (h *HeartbeatService) ping(ctx context.Context) {
	msg := EncodeControlMessage(h.session.ID(), h.seq, ControlSubTypePing)
	h.seq++
	if err := h.send(msg); err != nil {
		h.dropped.Add(1)
		slog.WarnContext(ctx, "heartbeat: ping dropped", "sessionID", h.session.ID(), "err", err)
		return
	}
	h.sent.Add(1)
	slog.DebugContext(ctx, "heartbeat: ping sent", "sessionID", h.session.ID())
}

// Sent は送信できた ping の数です。
func (h *HeartbeatService) Sent() int64 { return h.sent.Load() }

// Dropped は送信を拒否された ping の数です。
func (h *HeartbeatService) Dropped() int64 { return h.dropped.Load() }

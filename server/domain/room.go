package domain

import (
	"context"
	"log/slog"
	"time"
)

type RoomID string

// ルーム制御トピックに流す参加・離脱の合図
var (
	roomJoin  = []byte("join")
	roomLeave = []byte("leave")
)

// Application はルームに注入されるゲーム側のロジックです。
// すべてのメソッドはルームの goroutine からのみ呼ばれる。
type Application interface {
	// HandleMessage はクライアントから届いた1メッセージを処理します。
	HandleMessage(ctx context.Context, sessionID SessionID, data []byte) error
	// Tick は前回からの変化を送信用メッセージとして返します。
	Tick(ctx context.Context) [][]byte
	// Frame は新しく参加したセッションに送る現在の状態を返します。
	Frame(ctx context.Context) [][]byte
}

type Room struct {
	ID       RoomID
	sessions map[SessionID]struct{}

	pubsub      PubSub
	application Application

	tickInterval time.Duration
}

func NewRoom(id RoomID, pubsub PubSub, application Application) *Room {
	return &Room{
		ID:           id,
		sessions:     make(map[SessionID]struct{}),
		pubsub:       pubsub,
		application:  application,
		tickInterval: time.Second / 30,
	}
}

// WithTickInterval は送信間隔を変更します。
func (r *Room) WithTickInterval(d time.Duration) *Room {
	if d > 0 {
		r.tickInterval = d
	}
	return r
}

// Join はセッションの参加をルームに知らせます。
func Join(ctx context.Context, pubsub PubSub, roomID RoomID, sessionID SessionID) {
	pubsub.Publish(ctx, RoomCtrlTopic(roomID), Message{SessionID: sessionID, Data: roomJoin})
}

// Leave はセッションの離脱をルームに知らせます。
func Leave(ctx context.Context, pubsub PubSub, roomID RoomID, sessionID SessionID) {
	pubsub.Publish(ctx, RoomCtrlTopic(roomID), Message{SessionID: sessionID, Data: roomLeave})
}

func (r *Room) Broadcast(ctx context.Context, data []byte) {
	for sessionID := range r.sessions {
		r.SendTo(ctx, sessionID, data)
	}
}

func (r *Room) SendTo(ctx context.Context, sessionID SessionID, data []byte) {
	r.pubsub.Publish(ctx, SessionTopic(sessionID), Message{Data: data})
}

func (r *Room) Run(ctx context.Context) error {
	// room宛のメッセージを購読
	msgCh := r.pubsub.Subscribe(RoomTopic(r.ID))
	defer r.pubsub.Unsubscribe(RoomTopic(r.ID), msgCh)

	// room制御用トピックを購読（join/leave）
	ctrlCh := r.pubsub.Subscribe(RoomCtrlTopic(r.ID))
	defer r.pubsub.Unsubscribe(RoomCtrlTopic(r.ID), ctrlCh)

	ticker := time.NewTicker(r.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			// 制御メッセージを処理（join/leave）
		CTRL_LOOP:
			for {
				select {
				case ctrl := <-ctrlCh:
					r.handleControlMessage(ctx, ctrl)
				default:
					break CTRL_LOOP
				}
			}
			// 受信メッセージを処理
		RECEIVE_LOOP:
			for {
				select {
				case msg := <-msgCh:
					if err := r.application.HandleMessage(ctx, msg.SessionID, msg.Data); err != nil {
						slog.WarnContext(ctx, "room handle message failed", "sessionID", msg.SessionID, "err", err)
					}
				default:
					break RECEIVE_LOOP
				}
			}
			for _, data := range r.application.Tick(ctx) {
				r.Broadcast(ctx, data)
			}
		}
	}
}

func (r *Room) handleControlMessage(ctx context.Context, msg Message) {
	switch string(msg.Data) {
	case string(roomJoin):
		r.sessions[msg.SessionID] = struct{}{}
		for _, data := range r.application.Frame(ctx) {
			r.SendTo(ctx, msg.SessionID, data)
		}
		slog.InfoContext(ctx, "session joined room", "sessionID", msg.SessionID, "roomID", r.ID, "sessions", len(r.sessions))
	case string(roomLeave):
		delete(r.sessions, msg.SessionID)
		slog.InfoContext(ctx, "session left room", "sessionID", msg.SessionID, "roomID", r.ID, "sessions", len(r.sessions))
	default:
	}
}

package domain

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrBackpressure は書き込みチャネルが満杯の場合に返されるエラーです。
	ErrBackpressure = errors.New("endpoint: write channel is full, apply backpressure")
	// ErrInitializationFailed はセッションエンドポイントの初期化に失敗した場合に返されるエラーです。
	ErrInitializationFailed = errors.New("endpoint: failed to initialize session endpoint")
)

// EndpointConfig はエンドポイントのタイミング設定です。
type EndpointConfig struct {
	PingInterval time.Duration
	IdleTimeout  time.Duration
}

func DefaultEndpointConfig() EndpointConfig {
	return EndpointConfig{
		PingInterval: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}
}

// SessionEndpoint は1つの観戦接続について読み書き・死活監視・ルームとの中継を行います。
type SessionEndpoint struct {
	ctx    context.Context
	cancel context.CancelFunc

	session    *Session
	connection *Connection
	pubsub     PubSub
	roomID     RoomID
	cfg        EndpointConfig

	ctrlCh  chan endpointEvent // 制御用チャネル
	writeCh chan []byte        // 書き込み用チャネル

	// lifecycle
	closed atomic.Bool
}

func NewSessionEndpoint(ctx context.Context, session *Session, connection *Connection, pubsub PubSub, roomID RoomID, cfg EndpointConfig) (*SessionEndpoint, error) {
	if session == nil || connection == nil || pubsub == nil || roomID == "" {
		return nil, ErrInitializationFailed
	}
	if cfg.PingInterval <= 0 || cfg.IdleTimeout <= 0 {
		cfg = DefaultEndpointConfig()
	}
	ctx, cancel := context.WithCancel(ctx)
	return &SessionEndpoint{
		ctx:        ctx,
		cancel:     cancel,
		session:    session,
		connection: connection,
		pubsub:     pubsub,
		roomID:     roomID,
		cfg:        cfg,
		ctrlCh:     make(chan endpointEvent, 16),
		writeCh:    make(chan []byte, 1024),
	}, nil
}

// Run は接続が閉じられるまでブロックします。
func (se *SessionEndpoint) Run() error {
	// 自分宛のメッセージを購読してからルームに参加する
	sessionTopic := SessionTopic(se.session.ID())
	msgCh := se.pubsub.Subscribe(sessionTopic)
	defer se.pubsub.Unsubscribe(sessionTopic, msgCh)

	// セッションID通知を送信
	if err := se.Send(EncodeAssignMessage(se.session.ID())); err != nil {
		return err
	}
	Join(se.ctx, se.pubsub, se.roomID, se.session.ID())
	defer Leave(context.WithoutCancel(se.ctx), se.pubsub, se.roomID, se.session.ID())

	heartbeat := NewHeartbeatService(se.cfg.PingInterval, se.session, se.Send)

	eg, ctx := errgroup.WithContext(se.ctx)
	eg.Go(func() error {
		se.ownerLoop(ctx)
		return nil
	})
	eg.Go(func() error {
		se.readLoop(ctx)
		return nil
	})
	eg.Go(func() error {
		se.writeLoop(ctx)
		return nil
	})
	eg.Go(func() error {
		se.subscribeLoop(ctx, msgCh)
		return nil
	})
	eg.Go(func() error {
		heartbeat.Run(ctx)
		return nil
	})
	return eg.Wait()
}

func (se *SessionEndpoint) Send(data []byte) error {
	select {
	case se.writeCh <- data:
		return nil
	default:
		return ErrBackpressure
	}
}

// Close は ownerLoop に終了を依頼します。
func (se *SessionEndpoint) Close(ctx context.Context) {
	se.sendCtrlEvent(ctx, endpointEvent{kind: evClose})
}

func (se *SessionEndpoint) ForceClose() {
	se.close("forced")
}

// ownerLoop は論理セッションの状態を監視し、必要に応じて接続の管理を行います。
func (se *SessionEndpoint) ownerLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-se.ctrlCh:
			se.handleControlEvent(ctx, ev)
		case <-ticker.C:
			if idle, reason := se.session.IsIdle(se.cfg.IdleTimeout); idle {
				se.handleControlEvent(ctx, endpointEvent{kind: evClose, err: errors.New(reason.String())})
			}
		}
	}
}

func (se *SessionEndpoint) readLoop(ctx context.Context) {
	for {
		data, err := se.connection.Read(ctx)
		if err != nil {
			se.sendCtrlEvent(ctx, endpointEvent{kind: evReadError, err: err})
			return
		}
		se.session.TouchRead()
		se.handleData(ctx, data)
	}
}

func (se *SessionEndpoint) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-se.writeCh:
			if err := se.connection.Write(ctx, data); err != nil {
				se.sendCtrlEvent(ctx, endpointEvent{kind: evWriteError, err: err})
				return
			}
			se.session.TouchWrite()
		}
	}
}

// subscribeLoop はpubsubからのメッセージをwriteChに転送します。
func (se *SessionEndpoint) subscribeLoop(ctx context.Context, msgCh <-chan Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgCh:
			if !ok {
				return
			}
			select {
			case se.writeCh <- msg.Data:
			default:
				slog.WarnContext(ctx, "subscribeLoop: writeCh full, message dropped", "sessionID", se.session.ID())
			}
		}
	}
}

func (se *SessionEndpoint) close(reason string) {
	if !se.closed.CompareAndSwap(false, true) {
		return
	}
	se.cancel()
	se.session.Close()
	se.connection.Close(reason)
}

func (se *SessionEndpoint) handleData(ctx context.Context, data []byte) {
	header, ph, _, err := SplitMessage(data)
	if err != nil {
		slog.WarnContext(ctx, "failed to parse message", "sessionID", se.session.ID(), "err", err)
		return
	}
	if header.SessionID != se.session.ID().Bytes() {
		slog.WarnContext(ctx, "session ID mismatch", "expected", se.session.ID(), "got", SessionIDFromBytes(header.SessionID))
		return
	}

	switch ph.DataType {
	case DataTypeControl:
		if ControlSubType(ph.SubType) == ControlSubTypePong {
			se.sendCtrlEvent(ctx, endpointEvent{kind: evPong})
		}
	case DataTypeInput:
		// 入力はルームに転送し、ゲーム側で処理する
		se.pubsub.Publish(ctx, RoomTopic(se.roomID), Message{SessionID: se.session.ID(), Data: data})
	default:
		slog.WarnContext(ctx, "unexpected data type from client", "dataType", ph.DataType)
	}
}

// handleControlEvent は制御チャネルからのイベントを処理し論理セッションの状態を更新する唯一の関数です。
func (se *SessionEndpoint) handleControlEvent(ctx context.Context, ev endpointEvent) {
	switch ev.kind {
	case evClose:
		slog.DebugContext(ctx, "endpoint closing", "sessionID", se.session.ID(), "reason", ev.err)
		se.close("closed")
	case evPong:
		se.session.TouchPong()
	case evReadError, evWriteError:
		slog.DebugContext(ctx, "endpoint I/O failed", "sessionID", se.session.ID(), "event", ev.kind, "err", ev.err)
		se.close(ev.kind.String())
	default:
		slog.WarnContext(ctx, "unknown endpoint event kind", "kind", ev.kind)
	}
}

func (se *SessionEndpoint) sendCtrlEvent(ctx context.Context, ev endpointEvent) {
	select {
	case se.ctrlCh <- ev:
	case <-ctx.Done():
	}
}

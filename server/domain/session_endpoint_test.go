package domain_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	game "spiders/domain"
	"spiders/server/domain"
	"spiders/server/domain/mocks"

	"go.uber.org/mock/gomock"
)

// 初期化時に依存が欠けていればエラーになることを確認
func TestNewSessionEndpoint_RequiresDependencies(t *testing.T) {
	ctrl := gomock.NewController(t)

	s := domain.NewSession()
	tr := mocks.NewMockTransport(ctrl)
	c := domain.NewConnection(s.ID(), tr)
	ps := mocks.NewMockPubSub(ctrl)

	if _, err := domain.NewSessionEndpoint(context.Background(), nil, c, ps, "r", domain.DefaultEndpointConfig()); !errors.Is(err, domain.ErrInitializationFailed) {
		t.Errorf("nil session: err = %v", err)
	}
	if _, err := domain.NewSessionEndpoint(context.Background(), s, nil, ps, "r", domain.DefaultEndpointConfig()); !errors.Is(err, domain.ErrInitializationFailed) {
		t.Errorf("nil connection: err = %v", err)
	}
	if _, err := domain.NewSessionEndpoint(context.Background(), s, c, nil, "r", domain.DefaultEndpointConfig()); !errors.Is(err, domain.ErrInitializationFailed) {
		t.Errorf("nil pubsub: err = %v", err)
	}
	if _, err := domain.NewSessionEndpoint(context.Background(), s, c, ps, "", domain.DefaultEndpointConfig()); !errors.Is(err, domain.ErrInitializationFailed) {
		t.Errorf("empty room: err = %v", err)
	}
	se, err := domain.NewSessionEndpoint(context.Background(), s, c, ps, "r", domain.EndpointConfig{})
	if err != nil || se == nil {
		t.Fatalf("NewSessionEndpoint() = %v, %v", se, err)
	}
}

// blockingRead は最初に msgs を順に返し、その後はctxが終わるまでブロックする。
func blockingRead(msgs ...[]byte) func(ctx context.Context) ([]byte, error) {
	var n atomic.Int32
	return func(ctx context.Context) ([]byte, error) {
		i := int(n.Add(1)) - 1
		if i < len(msgs) {
			return msgs[i], nil
		}
		<-ctx.Done()
		return nil, ctx.Err()
	}
}

func TestSessionEndpoint_RunForwardsInputAndLeaves(t *testing.T) {
	ctrl := gomock.NewController(t)

	s := domain.NewSession()
	other := domain.NewSessionID()
	tr := mocks.NewMockTransport(ctrl)
	c := domain.NewConnection(s.ID(), tr)
	ps := domain.NewSimplePubSub()
	const room domain.RoomID = "arena"

	roomCh := ps.Subscribe(domain.RoomTopic(room))
	ctrlCh := ps.Subscribe(domain.RoomCtrlTopic(room))

	written := make(chan []byte, 8)
	tr.EXPECT().Read(gomock.Any()).DoAndReturn(blockingRead(
		domain.EncodeMoveMessage(other, 1, game.DirectionLeft), // 他人のセッションIDは捨てられる
		domain.EncodeMoveMessage(s.ID(), 2, game.DirectionUp),
	)).AnyTimes()
	tr.EXPECT().Write(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, data []byte) error {
		written <- data
		return nil
	}).AnyTimes()
	tr.EXPECT().Close(domain.StatusNormalClosure, gomock.Any()).Return(nil).Times(1)

	se, err := domain.NewSessionEndpoint(context.Background(), s, c, ps, room, domain.DefaultEndpointConfig())
	if err != nil {
		t.Fatal(err)
	}
	done := make(chan error, 1)
	go func() { done <- se.Run() }()

	select {
	case data := <-written:
		_, ph, _, err := domain.SplitMessage(data)
		if err != nil {
			t.Fatal(err)
		}
		if domain.ControlSubType(ph.SubType) != domain.ControlSubTypeAssign {
			t.Errorf("first write subtype = %d, want assign", ph.SubType)
		}
	case <-time.After(time.Second):
		t.Fatal("assign message was not written")
	}

	select {
	case msg := <-ctrlCh:
		if msg.SessionID != s.ID() {
			t.Errorf("join from %v, want %v", msg.SessionID, s.ID())
		}
	case <-time.After(time.Second):
		t.Fatal("join was not published")
	}

	select {
	case msg := <-roomCh:
		if msg.SessionID != s.ID() {
			t.Fatalf("forwarded input from %v, want %v", msg.SessionID, s.ID())
		}
		_, _, body, err := domain.SplitMessage(msg.Data)
		if err != nil {
			t.Fatal(err)
		}
		dir, err := domain.ParseMovePayload(body)
		if err != nil || dir != game.DirectionUp {
			t.Errorf("ParseMovePayload() = %v, %v; want UP", dir, err)
		}
	case <-time.After(time.Second):
		t.Fatal("input was not forwarded to the room")
	}

	se.Close(context.Background())
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Close")
	}
	if !s.IsClosed() {
		t.Error("session should be closed")
	}

	select {
	case msg := <-ctrlCh:
		if msg.SessionID != s.ID() {
			t.Errorf("leave from %v, want %v", msg.SessionID, s.ID())
		}
	case <-time.After(time.Second):
		t.Fatal("leave was not published")
	}
}

func TestSessionEndpoint_ReadErrorClosesConnection(t *testing.T) {
	ctrl := gomock.NewController(t)

	s := domain.NewSession()
	tr := mocks.NewMockTransport(ctrl)
	c := domain.NewConnection(s.ID(), tr)
	ps := domain.NewSimplePubSub()

	tr.EXPECT().Read(gomock.Any()).Return(nil, errors.New("connection reset")).AnyTimes()
	tr.EXPECT().Write(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	tr.EXPECT().Close(domain.StatusNormalClosure, "read_error").Return(nil).Times(1)

	se, err := domain.NewSessionEndpoint(context.Background(), s, c, ps, "arena", domain.DefaultEndpointConfig())
	if err != nil {
		t.Fatal(err)
	}
	done := make(chan error, 1)
	go func() { done <- se.Run() }()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after read error")
	}
	if !s.IsClosed() {
		t.Error("session should be closed")
	}
}

func TestSessionEndpoint_SendAppliesBackpressure(t *testing.T) {
	ctrl := gomock.NewController(t)

	s := domain.NewSession()
	c := domain.NewConnection(s.ID(), mocks.NewMockTransport(ctrl))
	se, err := domain.NewSessionEndpoint(context.Background(), s, c, mocks.NewMockPubSub(ctrl), "arena", domain.DefaultEndpointConfig())
	if err != nil {
		t.Fatal(err)
	}
	var last error
	for range 2000 {
		if last = se.Send([]byte{1}); last != nil {
			break
		}
	}
	if !errors.Is(last, domain.ErrBackpressure) {
		t.Errorf("Send() = %v, want ErrBackpressure", last)
	}
}

package domain

import (
	"context"
	"log/slog"
	"sync"
)

//go:generate go tool mockgen -destination=./mocks/pubsub_mock.go -package=mocks . PubSub

// Topic は配送先の名前です。"session:<id>" や "room:<id>" の形を取る。
type Topic string

func SessionTopic(id SessionID) Topic { return Topic("session:" + id.String()) }
func RoomTopic(id RoomID) Topic       { return Topic("room:" + string(id)) }
func RoomCtrlTopic(id RoomID) Topic   { return Topic("room:" + string(id) + ":ctrl") }

// Message は PubSub で運ばれる1件のメッセージです。
type Message struct {
	SessionID SessionID
	Data      []byte
}

// PubSub はセッションとルームをつなぐプロセス内のメッセージバスです。
type PubSub interface {
	Publish(ctx context.Context, topic Topic, msg Message)
	Subscribe(topic Topic) <-chan Message
	Unsubscribe(topic Topic, ch <-chan Message)
}

// SimplePubSub はトピックごとに購読チャネルを持つ PubSub 実装です。
// 購読者のバッファが満杯ならそのメッセージは捨てる。
type SimplePubSub struct {
	mu     sync.RWMutex
	subs   map[Topic][]chan Message
	buffer int
}

func NewSimplePubSub() *SimplePubSub {
	return &SimplePubSub{
		subs:   make(map[Topic][]chan Message),
		buffer: 256,
	}
}

func (p *SimplePubSub) Publish(ctx context.Context, topic Topic, msg Message) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, ch := range p.subs[topic] {
		select {
		case ch <- msg:
		default:
			slog.WarnContext(ctx, "pubsub: subscriber full, message dropped", "topic", topic)
		}
	}
}

func (p *SimplePubSub) Subscribe(topic Topic) <-chan Message {
	ch := make(chan Message, p.buffer)
	p.mu.Lock()
	p.subs[topic] = append(p.subs[topic], ch)
	p.mu.Unlock()
	return ch
}

func (p *SimplePubSub) Unsubscribe(topic Topic, ch <-chan Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	subs := p.subs[topic]
	for i, c := range subs {
		if c == ch {
			p.subs[topic] = append(subs[:i], subs[i+1:]...)
			close(c)
			break
		}
	}
	if len(p.subs[topic]) == 0 {
		delete(p.subs, topic)
	}
}

var _ PubSub = (*SimplePubSub)(nil)

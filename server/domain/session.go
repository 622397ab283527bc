package domain

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// SessionID は観戦接続ごとの識別子です。
type SessionID uuid.UUID

func NewSessionID() SessionID { return SessionID(uuid.New()) }

// SessionIDFromBytes はヘッダーの16バイトから SessionID を復元します。
func SessionIDFromBytes(b [16]byte) SessionID { return SessionID(b) }

func (id SessionID) Bytes() [16]byte { return [16]byte(id) }
func (id SessionID) String() string  { return uuid.UUID(id).String() }
func (id SessionID) IsZero() bool    { return id == SessionID{} }

// IdleReason はセッションがアイドルと判定された理由のビット集合です。
type IdleReason uint8

const (
	IdleNone     IdleReason = 0
	IdleRead     IdleReason = 1 << 0
	IdleWrite    IdleReason = 1 << 1
	IdlePong     IdleReason = 1 << 2
	IdleDisabled IdleReason = 1 << 7
)

func (r IdleReason) String() string {
	if r == IdleNone {
		return "none"
	}
	if r&IdleDisabled != 0 {
		return "disabled"
	}
	var parts []string
	if r&IdleRead != 0 {
		parts = append(parts, "read")
	}
	if r&IdleWrite != 0 {
		parts = append(parts, "write")
	}
	if r&IdlePong != 0 {
		parts = append(parts, "pong")
	}
	return "idle: " + strings.Join(parts, ",")
}

// Session は1接続の論理的な接続状態を表す構造体です。
type Session struct {
	id SessionID

	// activity
	lastRead  atomic.Int64
	lastWrite atomic.Int64
	lastPong  atomic.Int64

	// lifecycle
	closed atomic.Bool

	now func() time.Time
}

func NewSession() *Session {
	return newSessionWithClock(time.Now)
}

func newSessionWithClock(now func() time.Time) *Session {
	s := &Session{
		id:  NewSessionID(),
		now: now,
	}
	t := now().UnixNano()
	s.lastRead.Store(t)
	s.lastWrite.Store(t)
	s.lastPong.Store(t)
	return s
}

func (s *Session) ID() SessionID { return s.id }

func (s *Session) TouchRead()  { s.lastRead.Store(s.now().UnixNano()) }
func (s *Session) TouchWrite() { s.lastWrite.Store(s.now().UnixNano()) }
func (s *Session) TouchPong()  { s.lastPong.Store(s.now().UnixNano()) }

// Close は最初の呼び出しのときだけ true を返します。
func (s *Session) Close() bool {
	return s.closed.CompareAndSwap(false, true)
}

func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// IsIdle は読み込み・pong のいずれかが timeout を超えて途絶えているかを返します。
// 観戦者は入力を送らないことがあるため、読み込みのみの途絶ではアイドルとしない。
func (s *Session) IsIdle(timeout time.Duration) (bool, IdleReason) {
	if timeout <= 0 {
		return false, IdleDisabled
	}
	var reason IdleReason
	if s.idleSince(s.lastRead.Load(), timeout) {
		reason |= IdleRead
	}
	if s.idleSince(s.lastWrite.Load(), timeout) {
		reason |= IdleWrite
	}
	if s.idleSince(s.lastPong.Load(), timeout) {
		reason |= IdlePong
	}
	return reason&IdlePong != 0, reason
}

func (s *Session) idleSince(last int64, timeout time.Duration) bool {
	return s.now().Sub(time.Unix(0, last)) > timeout
}

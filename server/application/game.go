package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"spiders/application/request"
	"spiders/application/state"
	game "spiders/domain"
	"spiders/server/domain"
)

// ErrInputDisabled は観戦者からの入力が無効な場合に返されるエラーです。
var ErrInputDisabled = errors.New("application: spectator input is disabled")

// Controller は進行中のゲームへの窓口です。service.Session が満たす。
type Controller interface {
	Submit(ctx context.Context, req any) error
	Snapshot() [][]game.Cell
}

const (
	statusNone int32 = iota
	statusWon
	statusKilled
)

// GameApplication はゲームの状態変化を観戦ルームに配信する Application です。
// state.Notifier としてセッションに渡され、変化は次の Tick でまとめて送られる。
type GameApplication struct {
	mu         sync.RWMutex
	controller Controller

	dirty      atomic.Bool
	status     atomic.Int32
	statusSent atomic.Bool
	seq        atomic.Uint32

	allowInput    bool
	submitTimeout time.Duration
	now           func() time.Time
}

var (
	_ domain.Application = (*GameApplication)(nil)
	_ state.Notifier     = (*GameApplication)(nil)
)

type Option func(*GameApplication)

// WithInput は観戦者からの Move/Fire 入力を受け付けるようにします。
func WithInput(allow bool) Option {
	return func(app *GameApplication) { app.allowInput = allow }
}

func WithSubmitTimeout(d time.Duration) Option {
	return func(app *GameApplication) {
		if d > 0 {
			app.submitTimeout = d
		}
	}
}

func NewGameApplication(opts ...Option) *GameApplication {
	app := &GameApplication{
		submitTimeout: 100 * time.Millisecond,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(app)
	}
	// 最初の Tick で必ず盤面を送る
	app.dirty.Store(true)
	return app
}

// Attach はゲームを接続します。セッション生成後に一度呼ぶ。
func (app *GameApplication) Attach(c Controller) {
	app.mu.Lock()
	app.controller = c
	app.mu.Unlock()
	app.dirty.Store(true)
}

func (app *GameApplication) current() Controller {
	app.mu.RLock()
	defer app.mu.RUnlock()
	return app.controller
}

func (app *GameApplication) GridChanged() { app.dirty.Store(true) }

func (app *GameApplication) PlayerKilled() {
	app.status.CompareAndSwap(statusNone, statusKilled)
	app.dirty.Store(true)
}

func (app *GameApplication) PlayerWon() {
	app.status.CompareAndSwap(statusNone, statusWon)
	app.dirty.Store(true)
}

func (app *GameApplication) HandleMessage(ctx context.Context, sessionID domain.SessionID, data []byte) error {
	header, ph, body, err := domain.SplitMessage(data)
	if err != nil {
		return err
	}
	if ph.DataType != domain.DataTypeInput {
		slog.WarnContext(ctx, "unknown data type", "dataType", ph.DataType)
		return nil
	}
	if !app.allowInput {
		return ErrInputDisabled
	}
	c := app.current()
	if c == nil {
		slog.DebugContext(ctx, "input before game attached", "sessionID", sessionID)
		return nil
	}

	meta := request.Meta{
		RequestID:  uuid.NewString(),
		Source:     sessionID.String(),
		OccurredAt: app.now(),
	}
	var req any
	switch domain.InputSubType(ph.SubType) {
	case domain.InputSubTypeMove:
		dir, err := domain.ParseMovePayload(body)
		if err != nil {
			return err
		}
		req = request.Move{Meta: meta, Direction: dir}
	case domain.InputSubTypeFire:
		req = request.Fire{Meta: meta}
	default:
		slog.WarnContext(ctx, "unknown input subtype", "subType", ph.SubType)
		return nil
	}

	slog.DebugContext(ctx, "handleInput", "sessionID", sessionID, "seq", header.Seq, "requestID", meta.RequestID)

	ctx, cancel := context.WithTimeout(ctx, app.submitTimeout)
	defer cancel()
	return c.Submit(ctx, req)
}

// Tick は盤面が変わっていれば新しいフレームを、勝敗が決まっていれば一度だけ結果を返します。
func (app *GameApplication) Tick(ctx context.Context) [][]byte {
	var out [][]byte
	if app.dirty.CompareAndSwap(true, false) {
		if frame := app.frame(); frame != nil {
			out = append(out, frame)
		}
	}
	if status, ok := app.statusSubType(); ok && app.statusSent.CompareAndSwap(false, true) {
		slog.InfoContext(ctx, "broadcasting game result", "status", status)
		out = append(out, domain.EncodeStatusMessage(app.nextSeq(), status))
	}
	return out
}

// Frame は途中参加の観戦者に送る現在の盤面と決着済みの結果を返します。
func (app *GameApplication) Frame(context.Context) [][]byte {
	var out [][]byte
	if frame := app.frame(); frame != nil {
		out = append(out, frame)
	}
	if status, ok := app.statusSubType(); ok {
		out = append(out, domain.EncodeStatusMessage(app.nextSeq(), status))
	}
	return out
}

func (app *GameApplication) frame() []byte {
	c := app.current()
	if c == nil {
		return nil
	}
	return domain.EncodeGridFrame(app.nextSeq(), c.Snapshot())
}

func (app *GameApplication) statusSubType() (domain.StatusSubType, bool) {
	switch app.status.Load() {
	case statusWon:
		return domain.StatusSubTypeWon, true
	case statusKilled:
		return domain.StatusSubTypeKilled, true
	default:
		return 0, false
	}
}

func (app *GameApplication) nextSeq() uint16 {
	return uint16(app.seq.Add(1))
}

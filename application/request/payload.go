package request

import (
	"time"

	"spiders/domain"
)

// Meta はリクエスト共通の付帯情報を保持する。
type Meta struct {
	// RequestID は入力ごとの一意な識別子。
	RequestID string
	// Source は入力元（"terminal"、観戦セッションID など）。
	Source string
	// OccurredAt は入力が発生した時刻。
	OccurredAt time.Time
}

// Move はプレイヤーへの方向コマンド。
type Move struct {
	Meta      Meta
	Direction domain.Direction
}

// Fire はプレイヤーの向きへのパトロン発射コマンド。
type Fire struct {
	Meta Meta
}

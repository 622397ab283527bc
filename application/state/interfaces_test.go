package state_test

import (
	"testing"

	"go.uber.org/mock/gomock"

	"spiders/application/state"
	"spiders/application/state/mocks"
)

func TestMultiNotifier_FansOutInOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := mocks.NewMockNotifier(ctrl)
	b := mocks.NewMockNotifier(ctrl)

	gomock.InOrder(
		a.EXPECT().GridChanged(),
		b.EXPECT().GridChanged(),
		a.EXPECT().PlayerKilled(),
		b.EXPECT().PlayerKilled(),
		a.EXPECT().PlayerWon(),
		b.EXPECT().PlayerWon(),
	)

	n := state.MultiNotifier{a, b}
	n.GridChanged()
	n.PlayerKilled()
	n.PlayerWon()
}

func TestMultiNotifier_EmptyIsNop(t *testing.T) {
	var n state.MultiNotifier
	n.GridChanged()
	n.PlayerKilled()
	n.PlayerWon()
}

package terminal

import (
	"github.com/gdamore/tcell/v2"

	"spiders/domain"
)

type CommandKind uint8

const (
	CommandNone CommandKind = iota
	CommandMove
	CommandFire
	CommandQuit
)

// Command is a key press translated into a player action.
type Command struct {
	Kind      CommandKind
	Direction domain.Direction
}

// Translate maps a key event to a command. Unknown keys yield CommandNone.
func Translate(ev *tcell.EventKey) Command {
	switch ev.Key() {
	case tcell.KeyUp:
		return move(domain.DirectionUp)
	case tcell.KeyDown:
		return move(domain.DirectionDown)
	case tcell.KeyLeft:
		return move(domain.DirectionLeft)
	case tcell.KeyRight:
		return move(domain.DirectionRight)
	case tcell.KeyEnter:
		return Command{Kind: CommandFire}
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return Command{Kind: CommandQuit}
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'k', 'w':
			return move(domain.DirectionUp)
		case 'j', 's':
			return move(domain.DirectionDown)
		case 'h', 'a':
			return move(domain.DirectionLeft)
		case 'l', 'd':
			return move(domain.DirectionRight)
		case ' ', 'f':
			return Command{Kind: CommandFire}
		case 'q':
			return Command{Kind: CommandQuit}
		}
	}
	return Command{}
}

func move(d domain.Direction) Command {
	return Command{Kind: CommandMove, Direction: d}
}

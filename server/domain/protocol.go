package domain

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	game "spiders/domain"
)

// バイトオーダー: リトルエンディアン
var byteOrder = binary.LittleEndian

const (
	ProtocolVersion   = 1
	HeaderSize        = 25
	PayloadHeaderSize = 2
	GridHeaderSize    = 4
)

// Header はメッセージヘッダー (25バイト)
//
//	version    u8      (1)
//	sessionID  [16]byte (16)
//	seq        u16     (2)
//	length     u16     (2)  - ペイロード長
//	timestamp  u32     (4)
type Header struct {
	Version   uint8
	SessionID [16]byte
	Seq       uint16
	Length    uint16
	Timestamp uint32
}

// DataType はメッセージの種別
type DataType uint8

const (
	DataTypeInput   DataType = 1
	DataTypeGrid    DataType = 2
	DataTypeStatus  DataType = 3
	DataTypeControl DataType = 4
)

// InputSubType はプレイヤー入力のサブタイプ
type InputSubType uint8

const (
	InputSubTypeMove InputSubType = 1
	InputSubTypeFire InputSubType = 2
)

// GridSubType は盤面メッセージのサブタイプ
type GridSubType uint8

const (
	GridSubTypeFrame GridSubType = 1
)

// StatusSubType は勝敗通知のサブタイプ
type StatusSubType uint8

const (
	StatusSubTypeWon    StatusSubType = 1
	StatusSubTypeKilled StatusSubType = 2
)

// ControlSubType はcontrolメッセージのサブタイプ
type ControlSubType uint8

const (
	ControlSubTypeJoin   ControlSubType = 1
	ControlSubTypeLeave  ControlSubType = 2
	ControlSubTypePing   ControlSubType = 4
	ControlSubTypePong   ControlSubType = 5
	ControlSubTypeError  ControlSubType = 6
	ControlSubTypeAssign ControlSubType = 7
)

// PayloadHeader はペイロードヘッダー (2バイト)
//
//	datatype  u8 (1)
//	subtype   u8 (1)
type PayloadHeader struct {
	DataType DataType
	SubType  uint8
}

var (
	ErrInvalidHeaderSize  = errors.New("protocol: invalid header size")
	ErrInvalidPayloadSize = errors.New("protocol: invalid payload size")
	ErrInvalidGridFrame   = errors.New("protocol: invalid grid frame")
	ErrInvalidDirection   = errors.New("protocol: invalid direction")
)

// ParseHeader はバイト列からHeaderをパースする
func ParseHeader(data []byte) (*Header, error) {
	if len(data) < HeaderSize {
		return nil, ErrInvalidHeaderSize
	}

	var sessionID [16]byte
	copy(sessionID[:], data[1:17])

	return &Header{
		Version:   data[0],
		SessionID: sessionID,
		Seq:       byteOrder.Uint16(data[17:19]),
		Length:    byteOrder.Uint16(data[19:21]),
		Timestamp: byteOrder.Uint32(data[21:25]),
	}, nil
}

// Encode はHeaderをバイト列にエンコードする
func (h *Header) Encode() []byte {
	data := make([]byte, HeaderSize)
	data[0] = h.Version
	copy(data[1:17], h.SessionID[:])
	byteOrder.PutUint16(data[17:19], h.Seq)
	byteOrder.PutUint16(data[19:21], h.Length)
	byteOrder.PutUint32(data[21:25], h.Timestamp)
	return data
}

// ParsePayloadHeader はバイト列からPayloadHeaderをパースする
func ParsePayloadHeader(data []byte) (*PayloadHeader, error) {
	if len(data) < PayloadHeaderSize {
		return nil, ErrInvalidPayloadSize
	}

	return &PayloadHeader{
		DataType: DataType(data[0]),
		SubType:  data[1],
	}, nil
}

// Encode はPayloadHeaderをバイト列にエンコードする
func (p *PayloadHeader) Encode() []byte {
	return []byte{byte(p.DataType), p.SubType}
}

// EncodeMessage はヘッダー・ペイロードヘッダー・本体を1つのメッセージにまとめる
func EncodeMessage(sessionID SessionID, seq uint16, ph PayloadHeader, body []byte) []byte {
	length := PayloadHeaderSize + len(body)
	header := Header{
		Version:   ProtocolVersion,
		SessionID: sessionID.Bytes(),
		Seq:       seq,
		Length:    uint16(length),
		Timestamp: uint32(time.Now().UnixMilli() & 0xFFFFFFFF),
	}
	data := make([]byte, HeaderSize+length)
	copy(data[:HeaderSize], header.Encode())
	copy(data[HeaderSize:], ph.Encode())
	copy(data[HeaderSize+PayloadHeaderSize:], body)
	return data
}

// SplitMessage はメッセージをヘッダー・ペイロードヘッダー・本体に分ける
func SplitMessage(data []byte) (*Header, *PayloadHeader, []byte, error) {
	header, err := ParseHeader(data)
	if err != nil {
		return nil, nil, nil, err
	}
	rest := data[HeaderSize:]
	if int(header.Length) < PayloadHeaderSize || len(rest) < int(header.Length) {
		return nil, nil, nil, fmt.Errorf("%w: header says %d, got %d", ErrInvalidPayloadSize, header.Length, len(rest))
	}
	ph, err := ParsePayloadHeader(rest)
	if err != nil {
		return nil, nil, nil, err
	}
	return header, ph, rest[PayloadHeaderSize:header.Length], nil
}

// EncodeControlMessage は本体を持たない制御メッセージをエンコードする
func EncodeControlMessage(sessionID SessionID, seq uint16, subType ControlSubType) []byte {
	return EncodeMessage(sessionID, seq, PayloadHeader{DataType: DataTypeControl, SubType: uint8(subType)}, nil)
}

// EncodeAssignMessage はセッションID通知メッセージをエンコードする
// クライアントに自分のセッションIDを通知するために使用
func EncodeAssignMessage(sessionID SessionID) []byte {
	return EncodeControlMessage(sessionID, 0, ControlSubTypeAssign)
}

// EncodePingMessage はPingメッセージをエンコードする
// クライアントに死活確認のpingを送信するために使用
func EncodePingMessage(sessionID SessionID) []byte {
	return EncodeControlMessage(sessionID, 0, ControlSubTypePing)
}

// EncodeStatusMessage は勝敗通知をエンコードする。全員に同じものを送るためセッションIDは空。
func EncodeStatusMessage(seq uint16, status StatusSubType) []byte {
	return EncodeMessage(SessionID{}, seq, PayloadHeader{DataType: DataTypeStatus, SubType: uint8(status)}, nil)
}

// EncodeMoveMessage はプレイヤーの方向コマンドをエンコードする
//
//	direction u8 (1)
func EncodeMoveMessage(sessionID SessionID, seq uint16, dir game.Direction) []byte {
	return EncodeMessage(sessionID, seq, PayloadHeader{DataType: DataTypeInput, SubType: uint8(InputSubTypeMove)}, []byte{byte(dir)})
}

// EncodeFireMessage は発射コマンドをエンコードする
func EncodeFireMessage(sessionID SessionID, seq uint16) []byte {
	return EncodeMessage(sessionID, seq, PayloadHeader{DataType: DataTypeInput, SubType: uint8(InputSubTypeFire)}, nil)
}

// ParseMovePayload は方向コマンドの本体から方向を得る
func ParseMovePayload(body []byte) (game.Direction, error) {
	if len(body) < 1 {
		return game.DirectionNone, ErrInvalidPayloadSize
	}
	dir := game.Direction(body[0])
	if dir == game.DirectionNone || dir > game.DirectionRight {
		return game.DirectionNone, fmt.Errorf("%w: %d", ErrInvalidDirection, body[0])
	}
	return dir, nil
}

// EncodeCell は1セルを1バイトに詰める
//
//	occupant u4 | facing u3 | killed u1
func EncodeCell(c game.Cell) byte {
	b := byte(c.Occupant)<<4 | byte(c.Facing&0x07)<<1
	if c.Killed {
		b |= 1
	}
	return b
}

// DecodeCell は EncodeCell の逆変換
func DecodeCell(b byte) game.Cell {
	return game.Cell{
		Occupant: game.Occupant(b >> 4),
		Facing:   game.Direction((b >> 1) & 0x07),
		Killed:   b&1 == 1,
	}
}

// EncodeGridFrame は盤面全体をエンコードする
//
//	height u16 (2)
//	width  u16 (2)
//	cells  [height*width]u8 - 行優先
func EncodeGridFrame(seq uint16, cells [][]game.Cell) []byte {
	height := len(cells)
	width := 0
	if height > 0 {
		width = len(cells[0])
	}
	body := make([]byte, GridHeaderSize+height*width)
	byteOrder.PutUint16(body[0:2], uint16(height))
	byteOrder.PutUint16(body[2:4], uint16(width))
	i := GridHeaderSize
	for _, row := range cells {
		for _, c := range row {
			body[i] = EncodeCell(c)
			i++
		}
	}
	return EncodeMessage(SessionID{}, seq, PayloadHeader{DataType: DataTypeGrid, SubType: uint8(GridSubTypeFrame)}, body)
}

// ParseGridFrame は盤面メッセージの本体を復元する
func ParseGridFrame(body []byte) ([][]game.Cell, error) {
	if len(body) < GridHeaderSize {
		return nil, ErrInvalidGridFrame
	}
	height := int(byteOrder.Uint16(body[0:2]))
	width := int(byteOrder.Uint16(body[2:4]))
	if len(body) < GridHeaderSize+height*width {
		return nil, fmt.Errorf("%w: %dx%d needs %d bytes, got %d", ErrInvalidGridFrame, height, width, height*width, len(body)-GridHeaderSize)
	}
	cells := make([][]game.Cell, height)
	i := GridHeaderSize
	for r := range cells {
		cells[r] = make([]game.Cell, width)
		for c := range cells[r] {
			cells[r][c] = DecodeCell(body[i])
			i++
		}
	}
	return cells, nil
}

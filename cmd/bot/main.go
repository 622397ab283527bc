package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/coder/websocket"

	game "spiders/domain"
	"spiders/server/domain"
	"spiders/utils"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := utils.GetEnvDefault("ADDR", "localhost")
	port := utils.GetEnvDefault("PORT", "9090")
	drive := utils.GetEnvBool("BOT_DRIVE", false)
	intervalStr := utils.GetEnvDefault("BOT_INTERVAL", "250ms")
	interval, err := time.ParseDuration(intervalStr)
	if err != nil || interval <= 0 {
		slog.Error("invalid BOT_INTERVAL", "value", intervalStr)
		os.Exit(1)
	}
	botCountStr := utils.GetEnvDefault("BOT_COUNT", "1")
	botCount, err := strconv.Atoi(botCountStr)
	if err != nil || botCount <= 0 {
		slog.Error("invalid BOT_COUNT", "value", botCountStr)
		os.Exit(1)
	}

	serverURL := fmt.Sprintf("ws://%s:%s/ws", addr, port)
	slog.Info("starting bots", "count", botCount, "server", serverURL, "drive", drive)

	var wg sync.WaitGroup
	for i := range botCount {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			// 操作するのは最初のボットだけ
			runBot(ctx, serverURL, id, drive && id == 0, interval)
		}(i)
	}

	wg.Wait()
	slog.Info("all bots stopped")
}

func runBot(ctx context.Context, serverURL string, id int, drive bool, interval time.Duration) {
	logger := slog.With("botID", id)

	for {
		if ctx.Err() != nil {
			return
		}
		finished, err := botSession(ctx, serverURL, logger, drive, interval)
		if finished {
			return
		}
		if err != nil && ctx.Err() == nil {
			logger.Warn("bot session ended, reconnecting", "err", err)
			time.Sleep(2 * time.Second)
		}
	}
}

// botSession は1接続分の観戦を行い、勝敗を受け取ったら finished=true を返す。
func botSession(ctx context.Context, serverURL string, logger *slog.Logger, drive bool, interval time.Duration) (bool, error) {
	conn, _, err := websocket.Dial(ctx, serverURL, nil)
	if err != nil {
		return false, fmt.Errorf("dial: %w", err)
	}
	defer conn.CloseNow()

	logger.Info("connected")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu        sync.Mutex
		sessionID domain.SessionID
		seq       uint16
		cells     [][]game.Cell
	)
	writeMsg := func(build func(id domain.SessionID, seq uint16) []byte) error {
		mu.Lock()
		msg := build(sessionID, seq)
		seq++
		mu.Unlock()
		return conn.Write(ctx, websocket.MessageBinary, msg)
	}

	if drive {
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					mu.Lock()
					snapshot := cells
					ready := !sessionID.IsZero()
					mu.Unlock()
					if !ready || snapshot == nil {
						continue
					}
					dir, ok := NextMove(snapshot)
					if !ok {
						continue
					}
					err := writeMsg(func(id domain.SessionID, seq uint16) []byte {
						return domain.EncodeMoveMessage(id, seq, dir)
					})
					if err != nil {
						logger.Warn("failed to send move", "err", err)
						return
					}
				}
			}
		}()
	}

	// 受信ループ
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return false, err
		}
		header, ph, body, err := domain.SplitMessage(data)
		if err != nil {
			continue
		}

		switch ph.DataType {
		case domain.DataTypeControl:
			switch domain.ControlSubType(ph.SubType) {
			case domain.ControlSubTypeAssign:
				mu.Lock()
				sessionID = domain.SessionIDFromBytes(header.SessionID)
				mu.Unlock()
				logger.Info("session assigned", "sessionID", sessionID)
			case domain.ControlSubTypePing:
				err := writeMsg(func(id domain.SessionID, seq uint16) []byte {
					return domain.EncodeControlMessage(id, seq, domain.ControlSubTypePong)
				})
				if err != nil {
					return false, fmt.Errorf("send pong: %w", err)
				}
			}
		case domain.DataTypeGrid:
			frame, err := domain.ParseGridFrame(body)
			if err != nil {
				logger.Warn("bad grid frame", "err", err)
				continue
			}
			mu.Lock()
			cells = frame
			mu.Unlock()
			logger.Debug("frame", "seq", header.Seq, "height", len(frame))
		case domain.DataTypeStatus:
			switch domain.StatusSubType(ph.SubType) {
			case domain.StatusSubTypeWon:
				logger.Info("player escaped")
			case domain.StatusSubTypeKilled:
				logger.Info("player was killed")
			}
			conn.Close(websocket.StatusNormalClosure, "game over")
			return true, nil
		}
	}
}

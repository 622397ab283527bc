package server

import (
	"net/http"

	"spiders/server/domain"
	"spiders/server/handler"
)

func Route(pubsub domain.PubSub, roomID domain.RoomID, cfg domain.EndpointConfig, status handler.StatusFunc) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/ws", handler.NewAcceptHandler(pubsub, roomID, cfg))
	mux.Handle("/healthz", handler.NewHealthHandler(status))
	return mux
}

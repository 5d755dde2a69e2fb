package handler

import (
	"parley/internal/app/chat"
	"parley/internal/app/storage"
	"parley/internal/app/store"
	"parley/internal/configs"
	"parley/internal/pkg/limiter"
)

// AppDeps bundles the services the HTTP and WebSocket handlers depend on.
type AppDeps struct {
	Hub            *chat.Hub
	Dispatcher     *chat.Dispatcher
	Config         *configs.AppConfig
	StorageService storage.Service
	Store          *store.Store
	SendGate       *limiter.FixedWindow
}

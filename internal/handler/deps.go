package handler

import (
	"inkwire/internal/app/relay"
	"inkwire/internal/configs"
)

type AppDeps struct {
	Manager *relay.Manager
	Config  *configs.AppConfig
}

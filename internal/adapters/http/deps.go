package http

import (
	"github.com/nats-io/nats.go"

	"github.com/wayfarelabs/wayfare/internal/core/ports"
	"github.com/wayfarelabs/wayfare/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Tours     *usecases.TourService
	Routes    *usecases.RouteService
	Replans   *usecases.ReplanService
	Narration *usecases.NarrationService
	Speech    *usecases.SpeechService
	Catalog   ports.POICatalog
	Places    ports.PlaceSearcher
	NATS      *nats.Conn
	Cache     ports.CacheService
}

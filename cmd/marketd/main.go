package main

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/prajalsharma/venft-marketplace/internal/api"
	"github.com/prajalsharma/venft-marketplace/internal/config"
	"github.com/prajalsharma/venft-marketplace/internal/config/di"
	"github.com/prajalsharma/venft-marketplace/internal/event"
)

func main() {
	config.Init()

	container, err := di.NewContainer()
	if err != nil {
		zap.L().With(zap.Error(err)).Fatal("Failed to build container")
	}

	events := container.Get("events").(*event.Manager)
	subscribeSettlementLog(events)

	router := container.Get("api").(api.Server).Router()

	zap.L().With(zap.String("port", config.Get().ApiPort)).Info("Marketplace started")

	if err := http.ListenAndServe(":"+config.Get().ApiPort, router); err != nil {
		zap.L().With(zap.Error(err)).Fatal("Failed to start marketplace server")
	}
}

// subscribeSettlementLog mirrors every settlement event into the structured
// log, the durable record indexers tail.
func subscribeSettlementLog(events *event.Manager) {
	for _, eventType := range []event.Type{
		event.ListedEvent,
		event.PurchasedEvent,
		event.CancelledEvent,
		event.PriceUpdatedEvent,
		event.PaymentRoutedEvent,
		event.ProtocolFeeUpdatedEvent,
		event.PausedEvent,
		event.UnpausedEvent,
	} {
		eventType := eventType
		events.AddEventListener(eventType, func(msg interface{}) {
			zap.L().With(
				zap.String("event", string(eventType)),
				zap.Any("payload", msg),
			).Info("Settlement event")
		})
	}
}

// Package events declares the domain events of the quotation service and
// re-exports the platform bus so modules import a single package.
package events

import (
	platformevents "cotizador_backend/platform/events"
	"cotizador_backend/platform/logger"
)

type InMemoryBus = platformevents.InMemoryBus

// NewInMemoryBus creates the process-wide bus. Call Wait on shutdown so
// asynchronous subscribers such as the quote archive can finish.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return platformevents.NewInMemoryBus(log)
}

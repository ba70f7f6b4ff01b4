package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"cotizador_backend/internal/events"
	"cotizador_backend/platform/logger"
)

const uploadTimeout = 30 * time.Second

// QuoteArchiver stores a copy of every generated quotation PDF.
type QuoteArchiver struct {
	store  ObjectStore
	bucket string
	log    *logger.Logger
}

// NewQuoteArchiver creates an archiver writing into bucket.
func NewQuoteArchiver(store ObjectStore, bucket string, log *logger.Logger) *QuoteArchiver {
	return &QuoteArchiver{store: store, bucket: bucket, log: log}
}

// Subscribe registers the archiver for quote.generated events.
func (a *QuoteArchiver) Subscribe(bus events.Bus) {
	bus.Subscribe(events.QuoteGenerated{}.EventName(), a)
}

// Handle implements events.Handler.
func (a *QuoteArchiver) Handle(ctx context.Context, event events.Event) error {
	e, ok := event.(events.QuoteGenerated)
	if !ok {
		return fmt.Errorf("quote archive: unexpected event %T", event)
	}
	if err := a.store.ValidateUpload(ContentTypePDF, int64(len(e.PDF))); err != nil {
		return fmt.Errorf("quote archive %s: %w", e.QuoteID, err)
	}

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	key := ObjectKey(e)
	if err := a.store.PutObject(ctx, a.bucket, key, ContentTypePDF, bytes.NewReader(e.PDF), int64(len(e.PDF))); err != nil {
		return err
	}
	a.log.WithContext(ctx).Info("quote archived",
		"quote_id", e.QuoteID.String(),
		"bucket", a.bucket,
		"key", key,
	)
	return nil
}

// ObjectKey returns quotes/<yyyy>/<mm>/<machine>/<quote id>_<file name>.
func ObjectKey(e events.QuoteGenerated) string {
	at := e.OccurredAt().UTC()
	machine := e.MachineID
	if machine == "" {
		machine = "sin_modelo"
	}
	return path.Join("quotes", at.Format("2006"), at.Format("01"), machine, e.QuoteID.String()+"_"+e.FileName)
}

package application

import (
	"context"

	"github.com/foodthrift/paysmallsmall/internal/shared/domain"
	"github.com/foodthrift/paysmallsmall/pkg/observability"
)

type metadataSetter interface {
	SetMetadata(metadata domain.EventMetadata)
}

// EventMetadataFromContext builds event metadata from the request context,
// generating a correlation ID when the context has none.
func EventMetadataFromContext(ctx context.Context, userID string) domain.EventMetadata {
	correlationID := observability.CorrelationIDFromContext(ctx)
	if correlationID == "" {
		correlationID = observability.CorrelationIDFromContext(observability.WithCorrelationID(ctx, ""))
	}
	return domain.EventMetadata{CorrelationID: correlationID, UserID: userID}
}

// ApplyEventMetadata sets metadata on all events that support it.
func ApplyEventMetadata(events []domain.DomainEvent, metadata domain.EventMetadata) {
	for _, event := range events {
		if setter, ok := event.(metadataSetter); ok {
			setter.SetMetadata(metadata)
		}
	}
}

package output

import (
	"context"

	"github.com/crimson-sun/rcwatch/internal/model"
)

// Output defines the interface for classified event destinations.
type Output interface {
	Write(ctx context.Context, event model.Event) error
	Close() error
}

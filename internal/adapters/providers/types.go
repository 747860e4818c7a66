package providers

import (
	"context"

	"github.com/eshaffer321/monarch-amazon-tagger/internal/domain/order"
)

// ItemSource is the interface every order-history source implements.
type ItemSource interface {
	// Name identifies the source ("amazon").
	Name() string

	// LoadItems returns every parsed order-history item, in source order.
	LoadItems(ctx context.Context) ([]*order.Item, error)
}

// Progress receives determinate progress for long-running steps.
type Progress interface {
	Start(label string, total int)
	Increment()
	Finish()
}

// NoProgress discards all progress updates.
type NoProgress struct{}

func (NoProgress) Start(string, int) {}
func (NoProgress) Increment()        {}
func (NoProgress) Finish()           {}

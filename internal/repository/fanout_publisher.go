package repository

import (
	"context"

	"TrendSeg/internal/domain/models"
	"TrendSeg/internal/domain/repository"
)

// FanoutPublisher forwards each verdict to every wrapped publisher. The
// first error is returned after all publishers have been attempted.
type FanoutPublisher struct {
	pubs []repository.VerdictPublisher
}

func NewFanoutPublisher(pubs ...repository.VerdictPublisher) repository.VerdictPublisher {
	return &FanoutPublisher{pubs: pubs}
}

func (f *FanoutPublisher) Publish(ctx context.Context, v *models.SignalVerdict) error {
	var firstErr error
	for _, p := range f.pubs {
		if err := p.Publish(ctx, v); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (f *FanoutPublisher) Close() error {
	var firstErr error
	for _, p := range f.pubs {
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

package storage

import (
	"context"

	"rentalScope/internal/model"
)

// Storage defines a sink for resolved records.
type Storage interface {
	PutRecords(ctx context.Context, records []model.Record) error
}

// Multi fans records out to every sink in order and stops at the first error.
type Multi []Storage

func (m Multi) PutRecords(ctx context.Context, records []model.Record) error {
	for _, s := range m {
		if err := s.PutRecords(ctx, records); err != nil {
			return err
		}
	}
	return nil
}

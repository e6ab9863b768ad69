package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/pscheid92/pixelgrid/internal/canvas"
	"github.com/pscheid92/pixelgrid/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

// CanvasStore keeps the packed canvas in a single Redis string. Cell writes
// use BITFIELD SET u4 so concurrent writers never overwrite each other's
// nibbles.
type CanvasStore struct {
	rdb      *goredis.Client
	key      string
	geometry canvas.Geometry
}

func NewCanvasStore(rdb *goredis.Client, key string, geometry canvas.Geometry) *CanvasStore {
	return &CanvasStore{rdb: rdb, key: key, geometry: geometry}
}

// Initialize writes a zero buffer unless the key already exists.
func (s *CanvasStore) Initialize(ctx context.Context) error {
	zero := make([]byte, s.geometry.BufferLen())
	if err := s.rdb.SetNX(ctx, s.key, zero, 0).Err(); err != nil {
		return fmt.Errorf("%w: initialize %s: %w", domain.ErrStorage, s.key, err)
	}
	return nil
}

// ReadFull returns exactly BufferLen bytes. A missing key or a short value
// reads as color 0.
func (s *CanvasStore) ReadFull(ctx context.Context) ([]byte, error) {
	data, err := s.rdb.Get(ctx, s.key).Bytes()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("%w: read %s: %w", domain.ErrStorage, s.key, err)
	}

	buf := make([]byte, s.geometry.BufferLen())
	copy(buf, data)
	return buf, nil
}

func (s *CanvasStore) WriteCell(ctx context.Context, x, y, color int) error {
	if err := s.geometry.Validate(x, y, color); err != nil {
		return err
	}
	offset, err := s.geometry.BitOffset(x, y)
	if err != nil {
		return err
	}

	if err := s.rdb.BitField(ctx, s.key, "SET", "u4", offset, color).Err(); err != nil {
		return fmt.Errorf("%w: bitfield set %s at %d: %w", domain.ErrStorage, s.key, offset, err)
	}
	return nil
}

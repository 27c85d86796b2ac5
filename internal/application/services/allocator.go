package services

import (
	"context"
	"fmt"
	"time"

	"github.com/DanielPopoola/atelier-orders/internal/application"
	"github.com/DanielPopoola/atelier-orders/internal/domain"
)

// CodeAllocator hands out human codes. Uniqueness rests entirely on the
// counter's atomic increment; nothing here reads before writing.
type CodeAllocator struct {
	counter application.CodeCounter
}

func NewCodeAllocator(counter application.CodeCounter) *CodeAllocator {
	return &CodeAllocator{counter: counter}
}

func (a *CodeAllocator) Allocate(ctx context.Context, prefix domain.CodePrefix, created time.Time) (domain.HumanCode, error) {
	if !prefix.Valid() {
		return domain.HumanCode{}, domain.NewInvalidCodeFormatError(string(prefix))
	}

	day := domain.BucketDay(created)
	seq, err := a.counter.Next(ctx, prefix, day)
	if err != nil {
		return domain.HumanCode{}, fmt.Errorf("allocate %s code: %w", prefix, err)
	}
	return domain.NewHumanCode(prefix, day, seq), nil
}

func (a *CodeAllocator) Parse(code string) (domain.HumanCode, error) {
	return domain.ParseCode(code)
}

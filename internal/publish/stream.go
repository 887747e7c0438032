package publish

import (
	"context"
	"fmt"
	"io"
)

type StreamPublisher struct {
	w io.Writer
}

func NewStreamPublisher(w io.Writer) Publisher {
	return &StreamPublisher{w: w}
}

func (p *StreamPublisher) Name() string {
	return "stream"
}

func (p *StreamPublisher) Kind() string {
	return "stream"
}

func (p *StreamPublisher) Publish(ctx context.Context, name string, data io.Reader) error {
	if _, err := io.Copy(p.w, data); err != nil {
		return fmt.Errorf("failed to copy %s: %w", name, err)
	}
	return nil
}

func (p *StreamPublisher) Close(ctx context.Context) error {
	return nil
}

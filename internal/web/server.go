package web

import "context"

// Server is run by the process supervisor until ctx is cancelled.
type Server interface {
	Serve(ctx context.Context) error
}

// NoopServer stands in when the status server is disabled.
type NoopServer struct{}

func (NoopServer) Serve(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

package wifi

import (
	"context"

	"github.com/rook-computer/msgboard/internal/state"
)

// HostNetwork is used when the board does not manage its own radio, for
// example when running headless on a development machine. The link is
// assumed to be up; connectivity is still probed when a Prober is set.
type HostNetwork struct {
	Prober Prober
}

func (HostNetwork) Connect(context.Context) bool { return true }

func (h HostNetwork) CheckConnectivity(ctx context.Context, _ int) bool {
	if h.Prober == nil {
		return true
	}
	return h.Prober.Probe(ctx)
}

func (HostNetwork) Info(context.Context) state.NetworkInfo { return state.NetworkInfo{} }

package system

// Lifeline is fed by long-running loops to prove they are still making
// progress. A hardware watchdog resets the board when feeding stops.
type Lifeline interface {
	Feed()
}

// Heartbeat is the board-wide lifeline. Feeds are forwarded to Next when a
// watchdog is open and dropped otherwise.
type Heartbeat struct {
	Next Lifeline
}

func (h *Heartbeat) Feed() {
	if h.Next != nil {
		h.Next.Feed()
	}
}

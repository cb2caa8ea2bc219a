package system

import "github.com/rook-computer/msgboard/internal/logging"

// PrepareConsole hands the screen over to the framebuffer renderer.
// Failures are logged; the board keeps running either way.
func PrepareConsole(l logging.Logger) {
	l = logging.OrNoop(l)
	if err := SetGraphicsMode(); err != nil {
		l.Errorf("tty", "KD_GRAPHICS failed: %v", err)
	} else {
		l.Infof("tty", "KD_GRAPHICS set")
	}
	if err := HideCursor(); err != nil {
		l.Errorf("tty", "hide cursor failed: %v", err)
	}
}

// RestoreConsole undoes PrepareConsole on shutdown.
func RestoreConsole(l logging.Logger) {
	l = logging.OrNoop(l)
	if err := RestoreTextMode(); err != nil {
		l.Errorf("tty", "KD_TEXT failed: %v", err)
	}
	if err := ShowCursor(); err != nil {
		l.Errorf("tty", "show cursor failed: %v", err)
	}
}

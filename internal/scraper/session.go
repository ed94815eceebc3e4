package scraper

import (
	"log"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// Session owns one headless browser instance. Each scan acquires its own
// session and must release it on every exit path; nothing is shared
// across scans.
type Session struct {
	launcher *launcher.Launcher
	Browser  *rod.Browser
}

// NewSession launches a browser and connects to it. Any failure here is
// a SessionError: the scan cannot proceed without a working browser.
func NewSession(headless bool) (*Session, error) {
	l := launcher.New().Headless(headless)
	controlURL, err := l.Launch()
	if err != nil {
		return nil, &SessionError{Err: err}
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, &SessionError{Err: err}
	}

	return &Session{launcher: l, Browser: browser}, nil
}

// Close tears the browser down. Safe to call from a defer on every exit
// path.
func (s *Session) Close() {
	if s == nil {
		return
	}
	if s.Browser != nil {
		if err := s.Browser.Close(); err != nil {
			log.Printf("Session close: browser did not shut down cleanly: %v", err)
		}
	}
	if s.launcher != nil {
		s.launcher.Kill()
		s.launcher.Cleanup()
	}
}

package service

import (
	"errors"
	"os"
	"runtime"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/igor04091968/v2panel/logger"
)

var ErrRestartPending = errors.New("a panel restart is already scheduled")

// PanelService schedules a rebuild of the whole console. main treats SIGHUP as
// "reload settings and rebuild the app", so the default notifier signals our
// own process.
type PanelService struct {
	pending atomic.Bool
	notify  func() error
}

func NewPanelService() *PanelService {
	return &PanelService{notify: signalSelf}
}

// RestartPanel fires the restart after delay. Requests made while one is
// still scheduled are refused.
func (s *PanelService) RestartPanel(delay time.Duration) error {
	if !s.pending.CompareAndSwap(false, true) {
		return ErrRestartPending
	}
	notify := s.notify
	if notify == nil {
		notify = signalSelf
	}
	logger.Info("panel restart scheduled in ", delay)
	time.AfterFunc(delay, func() {
		defer s.pending.Store(false)
		if err := notify(); err != nil {
			logger.Error("panel restart failed: ", err)
		}
	})
	return nil
}

func (s *PanelService) Pending() bool {
	return s.pending.Load()
}

func signalSelf() error {
	p, err := os.FindProcess(os.Getpid())
	if err != nil {
		return err
	}
	// windows has no SIGHUP; the service manager brings the panel back
	if runtime.GOOS == "windows" {
		return p.Kill()
	}
	return p.Signal(syscall.SIGHUP)
}

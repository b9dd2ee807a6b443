//go:build windows

package platform

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/mgr"
)

const servicePoll = 100 * time.Millisecond

type serviceManager struct{}

func (serviceManager) Stop(ctx context.Context, name string) (bool, error) {
	return transition(ctx, name, svc.Stopped, func(s *mgr.Service) error {
		_, err := s.Control(svc.Stop)
		return err
	})
}

func (serviceManager) Start(ctx context.Context, name string) (bool, error) {
	return transition(ctx, name, svc.Running, func(s *mgr.Service) error {
		return s.Start()
	})
}

// transition moves a service to want unless it is already there, then polls
// until it arrives or ctx expires.
func transition(ctx context.Context, name string, want svc.State, do func(*mgr.Service) error) (bool, error) {
	m, err := mgr.Connect()
	if err != nil {
		return false, fmt.Errorf("connecting to service manager: %w", err)
	}
	defer m.Disconnect()

	s, err := m.OpenService(name)
	if err != nil {
		if errors.Is(err, windows.ERROR_SERVICE_DOES_NOT_EXIST) {
			return false, nil
		}
		return false, fmt.Errorf("opening service %s: %w", name, err)
	}
	defer s.Close()

	st, err := s.Query()
	if err != nil {
		return false, fmt.Errorf("querying service %s: %w", name, err)
	}
	if st.State == want {
		return false, nil
	}

	if err := do(s); err != nil {
		return false, fmt.Errorf("service %s: %w", name, err)
	}

	ticker := time.NewTicker(servicePoll)
	defer ticker.Stop()
	for {
		st, err := s.Query()
		if err != nil {
			return true, fmt.Errorf("querying service %s: %w", name, err)
		}
		if st.State == want {
			return true, nil
		}
		select {
		case <-ctx.Done():
			return true, fmt.Errorf("service %s still in state %d: %w", name, st.State, ctx.Err())
		case <-ticker.C:
		}
	}
}

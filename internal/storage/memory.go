package storage

import (
	"context"
	"sync"

	"github.com/openshop/appointment-intake/internal/model"
)

// MemoryStore is a process-local Store for development runs and tests.
type MemoryStore struct {
	mu     sync.Mutex
	byID   map[string]model.Appointment
	bySlot map[string][]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:   make(map[string]model.Appointment),
		bySlot: make(map[string][]string),
	}
}

func (s *MemoryStore) QueryByLocationTimeKey(_ context.Context, key string) ([]model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.bySlot[key]
	if len(ids) == 0 {
		return nil, nil
	}
	appts := make([]model.Appointment, 0, len(ids))
	for _, id := range ids {
		if appt, ok := s.byID[id]; ok {
			appts = append(appts, appt)
		}
	}
	return appts, nil
}

func (s *MemoryStore) PutIfIDAbsent(_ context.Context, appt model.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[appt.ID]; exists {
		return putError("memory", appt.ID, "precondition_failed", ErrIDExists)
	}
	s.byID[appt.ID] = appt
	s.bySlot[appt.LocationTimeKey] = append(s.bySlot[appt.LocationTimeKey], appt.ID)
	return nil
}

func (s *MemoryStore) Ready(context.Context) error { return nil }

// Len reports the number of stored appointments.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

package storage

import (
	"context"
	"testing"
	"time"

	"github.com/openshop/appointment-intake/internal/model"
)

func sampleAppointment(id, location, at string) model.Appointment {
	now := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)
	return model.Appointment{
		ID:              id,
		FullName:        "Jane Doe",
		Location:        location,
		Car:             "Subaru Outback",
		AppointmentTime: at,
		Services:        []string{"Oil Change"},
		LocationTimeKey: model.LocationTimeKey(location, at),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func TestMemoryStore_PutAndQuery(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	appt := sampleAppointment("a1", "Farrish Subaru", "2025-04-20T15:30:00Z")

	if err := store.PutIfIDAbsent(ctx, appt); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	got, err := store.QueryByLocationTimeKey(ctx, appt.LocationTimeKey)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "a1" {
		t.Fatalf("expected the stored record, got %+v", got)
	}

	other, err := store.QueryByLocationTimeKey(ctx, "Downtown Honda#2025-04-20T15:30:00Z")
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("expected no records for other slot, got %+v", other)
	}
}

func TestMemoryStore_PutIsConditionalOnID(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	first := sampleAppointment("a1", "Farrish Subaru", "2025-04-20T15:30:00Z")
	if err := store.PutIfIDAbsent(ctx, first); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	// Same id again must fail the precondition, even for a different slot.
	dup := sampleAppointment("a1", "Downtown Honda", "2025-05-01T09:00:00Z")
	err := store.PutIfIDAbsent(ctx, dup)
	if !IsIDExists(err) {
		t.Fatalf("expected ErrIDExists, got %v", err)
	}
	se, ok := AsStoreError(err)
	if !ok {
		t.Fatalf("expected StoreError, got %T", err)
	}
	if se.Op != "put" || se.Code != "precondition_failed" {
		t.Fatalf("unexpected StoreError: %+v", se)
	}
	if store.Len() != 1 {
		t.Fatalf("expected 1 record after failed put, got %d", store.Len())
	}

	// A fresh id for the same slot is accepted: slot uniqueness is the
	// caller's pre-check, not a store constraint.
	second := sampleAppointment("a2", "Farrish Subaru", "2025-04-20T15:30:00Z")
	if err := store.PutIfIDAbsent(ctx, second); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	got, err := store.QueryByLocationTimeKey(ctx, first.LocationTimeKey)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected both records in the slot, got %d", len(got))
	}
}

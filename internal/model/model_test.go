package model

import (
	"testing"
	"time"
)

func TestEventIsBookable(t *testing.T) {
	now := time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		status EventStatus
		endAt  time.Time
		want   bool
	}{
		{"active future", EventStatusActive, now.Add(time.Hour), true},
		{"active ending now", EventStatusActive, now, true},
		{"active past", EventStatusActive, now.Add(-time.Second), false},
		{"cancelled future", EventStatusCancelled, now.Add(time.Hour), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Event{Status: tt.status, EndAt: tt.endAt}
			if got := e.IsBookable(now); got != tt.want {
				t.Errorf("IsBookable = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEventCounters(t *testing.T) {
	e := Event{TotalTicket: 3, AvailableTicket: 1}
	if e.Booked() != 2 || e.IsFull() {
		t.Errorf("booked=%d full=%v", e.Booked(), e.IsFull())
	}
	e.AvailableTicket = 0
	if !e.IsFull() {
		t.Error("IsFull = false with no tickets left")
	}
}

func TestBookingIsActive(t *testing.T) {
	now := time.Now()
	if !(&Booking{Status: BookingStatusConfirmed}).IsActive() {
		t.Error("confirmed booking not active")
	}
	if (&Booking{Status: BookingStatusCancelled}).IsActive() {
		t.Error("cancelled booking active")
	}
	if (&Booking{Status: BookingStatusConfirmed, DeletedAt: &now}).IsActive() {
		t.Error("soft-deleted booking active")
	}
}

func TestWaitlistEntryBefore(t *testing.T) {
	t0 := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	a := &WaitlistEntry{CreatedAt: t0, Seq: 7}
	b := &WaitlistEntry{CreatedAt: t0, Seq: 8}
	c := &WaitlistEntry{CreatedAt: t0.Add(-time.Millisecond), Seq: 9}

	if !a.Before(b) || b.Before(a) {
		t.Error("equal timestamps must order by sequence")
	}
	if !c.Before(a) {
		t.Error("earlier timestamp must win over lower sequence")
	}
	if a.Before(a) {
		t.Error("entry ordered before itself")
	}
}

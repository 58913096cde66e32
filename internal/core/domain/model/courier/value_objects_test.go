package courier_test

import (
	"testing"
	"time"

	"courier-dispatch/internal/core/domain/model/courier"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkHours(t *testing.T) {
	tod := func(s string) courier.TimeOfDay {
		v, err := courier.ParseTimeOfDay(s)
		require.NoError(t, err)
		return v
	}
	// 2026-10-12 is a Monday.
	at := func(day int, hh, mm, ss int) time.Time {
		return time.Date(2026, 10, 11+day, hh, mm, ss, 0, time.UTC)
	}

	t.Run("should include both bounds at minute precision", func(t *testing.T) {
		h, err := courier.NewWorkHours(tod("09:00"), tod("18:00"), []int{1, 2, 3, 4, 5})
		require.NoError(t, err)

		assert.False(t, h.IsOnShift(at(1, 8, 59, 59)))
		assert.True(t, h.IsOnShift(at(1, 9, 0, 0)))
		assert.True(t, h.IsOnShift(at(1, 18, 0, 59)))
		assert.False(t, h.IsOnShift(at(1, 18, 1, 0)))
		assert.False(t, h.IsOnShift(at(6, 12, 0, 0)))
	})

	t.Run("should wrap past midnight", func(t *testing.T) {
		h, err := courier.NewWorkHours(tod("22:00"), tod("06:00"), []int{1, 2, 3, 4, 5, 6, 7})
		require.NoError(t, err)

		assert.True(t, h.Wraps())
		assert.True(t, h.IsOnShift(at(2, 23, 30, 0)))
		assert.True(t, h.IsOnShift(at(3, 5, 59, 0)))
		assert.False(t, h.IsOnShift(at(3, 12, 0, 0)))
	})

	t.Run("should collapse and sort days", func(t *testing.T) {
		h, err := courier.NewWorkHours(tod("09:00"), tod("10:00"), []int{5, 1, 5, 3})
		require.NoError(t, err)
		assert.Equal(t, []int{1, 3, 5}, h.Days())
	})

	t.Run("should reject invalid schedules", func(t *testing.T) {
		_, err := courier.NewWorkHours(tod("09:00"), tod("09:00"), []int{1})
		require.ErrorIs(t, err, courier.ErrInvalidSchedule)

		_, err = courier.NewWorkHours(tod("09:00"), tod("10:00"), nil)
		require.ErrorIs(t, err, courier.ErrInvalidSchedule)

		_, err = courier.NewWorkHours(tod("09:00"), tod("10:00"), []int{0})
		require.ErrorIs(t, err, courier.ErrInvalidSchedule)

		_, err = courier.ParseTimeOfDay("24:00")
		require.ErrorIs(t, err, courier.ErrInvalidSchedule)

		_, err = courier.ParseTimeOfDay("noon")
		require.ErrorIs(t, err, courier.ErrInvalidSchedule)
	})

	t.Run("should cover every minute when always on", func(t *testing.T) {
		h := courier.AlwaysOn()
		assert.True(t, h.IsOnShift(at(7, 0, 0, 0)))
		assert.True(t, h.IsOnShift(at(7, 23, 59, 59)))
	})
}

func TestContact(t *testing.T) {
	tests := []struct {
		name  string
		phone string
		email string
		ok    bool
	}{
		{"valid", "+4915112345678", "a@b.de", true},
		{"phone without plus", "4915112345678", "a@b.de", false},
		{"phone too short", "+4912", "a@b.de", false},
		{"phone leading zero", "+0915112345678", "a@b.de", false},
		{"email with display name", "+4915112345678", "Anna <a@b.de>", false},
		{"email without dotted domain", "+4915112345678", "a@localhost", false},
		{"email missing at", "+4915112345678", "ab.de", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := courier.NewContact(tt.phone, tt.email, " token ")
			if !tt.ok {
				require.ErrorIs(t, err, courier.ErrInvalidContact)
				assert.True(t, c.IsZero())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.phone, c.Phone())
			assert.Equal(t, "token", c.PushToken())
		})
	}
}

func TestTransportType(t *testing.T) {
	tests := []struct {
		name    string
		maxLoad uint16
		speed   float64
	}{
		{"foot", 1, 5},
		{"bicycle", 3, 15},
		{"motorcycle", 5, 40},
		{"car", 10, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := courier.ParseTransportType(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.name, tr.String())
			assert.Equal(t, tt.maxLoad, tr.DefaultMaxLoad())
			assert.InDelta(t, tt.speed, tr.SpeedKmh(), 1e-9)
		})
	}

	_, err := courier.ParseTransportType("rocket")
	require.Error(t, err)
	require.Error(t, courier.TransportUnknown.Validate())
}

func TestStatus(t *testing.T) {
	s, err := courier.ParseStatus("busy")
	require.NoError(t, err)
	assert.Equal(t, courier.StatusBusy, s)
	assert.True(t, s.IsActive())
	assert.False(t, courier.StatusUnavailable.IsActive())

	_, err = courier.ParseStatus("unknown")
	require.Error(t, err)
	require.Error(t, courier.Status(42).Validate())
}

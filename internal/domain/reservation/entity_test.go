package reservation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

func testRequest() Request {
	return Request{
		SpaceID:        "space-1",
		UnitID:         "unit-101",
		ResidentID:     "resident-1",
		Title:          "誕生日会",
		StartAt:        time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC),
		EndAt:          time.Date(2026, 10, 19, 14, 0, 0, 0, time.UTC),
		ExpectedGuests: 10,
	}
}

func createTestReservation(t *testing.T, requiresApproval bool) *Reservation {
	t.Helper()
	r, err := NewReservation(testRequest(), requiresApproval, now)
	require.NoError(t, err)
	r.PullEvents()
	return r
}

func eventTypes(events []Event) []EventType {
	types := make([]EventType, len(events))
	for i, e := range events {
		types[i] = e.Type
	}
	return types
}

func TestNewReservation(t *testing.T) {
	t.Run("承認制の施設は承認待ちで作成される", func(t *testing.T) {
		r, err := NewReservation(testRequest(), true, now)
		require.NoError(t, err)
		assert.NotEmpty(t, r.ID)
		assert.Equal(t, StatusPendingApproval, r.Status)
		assert.Equal(t, []EventType{EventRequested}, eventTypes(r.PullEvents()))
	})

	t.Run("承認不要の施設は即時確定される", func(t *testing.T) {
		r, err := NewReservation(testRequest(), false, now)
		require.NoError(t, err)
		assert.Equal(t, StatusConfirmed, r.Status)
		events := r.PullEvents()
		assert.Equal(t, []EventType{EventRequested, EventConfirmed}, eventTypes(events))
		for _, e := range events {
			assert.Equal(t, r.ID, e.ReservationID)
		}
	})

	tests := []struct {
		name   string
		modify func(*Request)
		want   error
	}{
		{"施設ID未指定", func(r *Request) { r.SpaceID = "" }, ErrSpaceIDRequired},
		{"住戸ID未指定", func(r *Request) { r.UnitID = "" }, ErrUnitIDRequired},
		{"居住者ID未指定", func(r *Request) { r.ResidentID = "" }, ErrResidentIDRequired},
		{"開始と終了が同時刻", func(r *Request) { r.EndAt = r.StartAt }, ErrInvalidTimeRange},
		{"終了が開始より前", func(r *Request) { r.EndAt = r.StartAt.Add(-time.Hour) }, ErrInvalidTimeRange},
		{"利用人数0", func(r *Request) { r.ExpectedGuests = 0 }, ErrInvalidGuestCount},
		{"タイトルが空白のみ", func(r *Request) { r.Title = "   " }, ErrTitleRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testRequest()
			tt.modify(&req)
			r, err := NewReservation(req, true, now)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, r)
		})
	}
}

func TestReservation_Approve(t *testing.T) {
	r := createTestReservation(t, true)

	require.NoError(t, r.Approve("admin-1", now))
	assert.Equal(t, StatusConfirmed, r.Status)
	require.NotNil(t, r.ApprovedBy)
	assert.Equal(t, "admin-1", *r.ApprovedBy)
	assert.Equal(t, now, *r.ApprovedAt)
	assert.Equal(t, []EventType{EventConfirmed}, eventTypes(r.PullEvents()))

	t.Run("確定済みの予約は再承認できない", func(t *testing.T) {
		err := r.Approve("admin-1", now)
		var te *TransitionError
		require.ErrorAs(t, err, &te)
		assert.ErrorIs(t, err, ErrInvalidTransition)
		assert.Equal(t, StatusConfirmed, te.Current)
		assert.Equal(t, StatusConfirmed, te.Attempted)
		assert.Equal(t, []Status{StatusCanceled, StatusInProgress}, te.Allowed)
		assert.Empty(t, r.PullEvents())
	})
}

func TestReservation_Reject(t *testing.T) {
	r := createTestReservation(t, true)

	t.Run("理由は必須", func(t *testing.T) {
		assert.ErrorIs(t, r.Reject("admin-1", " ", now), ErrReasonRequired)
		assert.Equal(t, StatusPendingApproval, r.Status)
	})

	require.NoError(t, r.Reject("admin-1", "定員超過の恐れ", now))
	assert.Equal(t, StatusRejected, r.Status)
	assert.Equal(t, "定員超過の恐れ", *r.RejectionReason)
	events := r.PullEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventRejected, events[0].Type)
	assert.Equal(t, "定員超過の恐れ", events[0].Reason)
}

func TestReservation_Cancel(t *testing.T) {
	tests := []struct {
		name     string
		deadline time.Duration
		at       time.Time
		wantLate bool
	}{
		{"期限より前のキャンセル", 24 * time.Hour, time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC), false},
		{"期限ちょうどのキャンセル", 24 * time.Hour, time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC), false},
		{"期限を過ぎたキャンセル", 24 * time.Hour, time.Date(2026, 10, 18, 10, 0, 1, 0, time.UTC), true},
		{"開始後のキャンセル", 0, time.Date(2026, 10, 19, 11, 0, 0, 0, time.UTC), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := createTestReservation(t, false)
			require.NoError(t, r.Cancel("resident-1", "予定変更", tt.deadline, tt.at))
			assert.Equal(t, StatusCanceled, r.Status)
			assert.Equal(t, tt.wantLate, r.LateCancellation)

			events := r.PullEvents()
			require.Len(t, events, 1)
			assert.Equal(t, EventCanceled, events[0].Type)
			assert.Equal(t, tt.wantLate, events[0].IsLateCancellation)
		})
	}
}

func TestReservation_Cancel_Twice(t *testing.T) {
	r := createTestReservation(t, true)
	require.NoError(t, r.Cancel("resident-1", "", 0, now))
	assert.Len(t, r.PullEvents(), 1)
	assert.Nil(t, r.CancellationReason)

	err := r.Cancel("resident-1", "", 0, now)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StatusCanceled, r.Status)
	assert.Empty(t, r.PullEvents())
}

func TestReservation_Lifecycle(t *testing.T) {
	r := createTestReservation(t, false)

	require.NoError(t, r.CheckIn(now))
	assert.Equal(t, StatusInProgress, r.Status)
	assert.NotNil(t, r.CheckedInAt)

	t.Run("利用中はキャンセルできない", func(t *testing.T) {
		assert.ErrorIs(t, r.Cancel("resident-1", "", 0, now), ErrInvalidTransition)
	})

	require.NoError(t, r.Complete(now.Add(time.Hour)))
	assert.Equal(t, StatusCompleted, r.Status)
	assert.True(t, r.Status.IsTerminal())
	assert.Equal(t, []EventType{EventCheckedIn, EventCompleted}, eventTypes(r.PullEvents()))
}

func TestReservation_MarkNoShow(t *testing.T) {
	r := createTestReservation(t, false)

	t.Run("確定状態からは記録できない", func(t *testing.T) {
		assert.ErrorIs(t, r.MarkNoShow("admin-1", now), ErrInvalidTransition)
	})

	require.NoError(t, r.CheckIn(now))
	require.NoError(t, r.MarkNoShow("admin-1", now))
	assert.Equal(t, StatusNoShow, r.Status)
	assert.Equal(t, "admin-1", *r.NoShowBy)
}

func TestReservation_ActorRequired(t *testing.T) {
	r := createTestReservation(t, true)
	assert.ErrorIs(t, r.Approve("", now), ErrActorRequired)
	assert.ErrorIs(t, r.Reject("", "理由", now), ErrActorRequired)
	assert.ErrorIs(t, r.Cancel("", "", 0, now), ErrActorRequired)
	assert.Equal(t, StatusPendingApproval, r.Status)
}

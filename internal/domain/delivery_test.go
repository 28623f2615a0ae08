package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"service-delivery/internal/apperr"
)

var t0 = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

const sessionLimit = 2 * time.Hour

func threeItems() []ItemRef {
	return []ItemRef{
		{ProductID: "p1", ShopID: "s1"},
		{ProductID: "p2", ShopID: "s1"},
		{ProductID: "p3", ShopID: "s2"},
	}
}

func newTestDelivery(t *testing.T, items []ItemRef) *Delivery {
	t.Helper()
	d, err := NewDelivery("d-1", 42, "SOMBAGO-AB12C3", items, &Location{Lat: 14.69, Lng: -17.44}, t0)
	require.NoError(t, err)
	return d
}

func TestNewDelivery_Defaults(t *testing.T) {
	t.Parallel()

	d := newTestDelivery(t, threeItems())

	require.Equal(t, StatusPending, d.Status)
	require.Equal(t, 3, d.TotalItems())
	require.Equal(t, 0, d.CollectedCount())
	require.Zero(t, d.Progress())
	require.False(t, d.GPSActive)
	require.Equal(t, 1, d.CodeEpoch)
	for _, c := range d.Collections {
		require.Equal(t, CollectionPending, c.Status)
		require.Nil(t, c.CollectedAt)
	}
}

func TestNewDelivery_Invalid(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		id    string
		order int64
		code  string
		items []ItemRef
		dest  *Location
	}{
		{"empty id", " ", 1, "C", threeItems(), nil},
		{"bad order", "d", 0, "C", threeItems(), nil},
		{"empty code", "d", 1, "", threeItems(), nil},
		{"no items", "d", 1, "C", nil, nil},
		{"empty shop", "d", 1, "C", []ItemRef{{ProductID: "p"}}, nil},
		{"duplicate", "d", 1, "C", []ItemRef{{"p", "s"}, {"p", "s"}}, nil},
		{"bad destination", "d", 1, "C", threeItems(), &Location{Lat: 91}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			d, err := NewDelivery(tc.id, tc.order, tc.code, tc.items, tc.dest, t0)
			require.ErrorIs(t, err, apperr.ErrInvalid)
			require.Nil(t, d)
		})
	}
}

func TestRecordCollection_AutoAdvances(t *testing.T) {
	t.Parallel()

	d := newTestDelivery(t, threeItems())

	out, err := d.RecordCollection("p1", "s1", t0.Add(time.Minute), sessionLimit)
	require.NoError(t, err)
	require.Equal(t, StatusCollecting, d.Status)
	require.Equal(t, []StatusChange{{From: StatusPending, To: StatusCollecting}}, out.Transitions)
	require.False(t, out.Ready)
	require.Equal(t, 1, out.CollectedCount)
	require.InDelta(t, 1.0/3.0, d.Progress(), 1e-9)

	_, err = d.RecordCollection("p2", "s1", t0.Add(2*time.Minute), sessionLimit)
	require.NoError(t, err)
	require.Equal(t, StatusCollecting, d.Status)

	last := t0.Add(3 * time.Minute)
	out, err = d.RecordCollection("p3", "s2", last, sessionLimit)
	require.NoError(t, err)
	require.True(t, out.Ready)
	require.Equal(t, []StatusChange{{From: StatusCollecting, To: StatusInTransit}}, out.Transitions)
	require.Equal(t, StatusInTransit, d.Status)
	require.Equal(t, 1.0, d.Progress())
	require.NotNil(t, d.PickedUpAt)
	require.True(t, d.PickedUpAt.Equal(last))
	require.True(t, d.GPSActive)
	require.Equal(t, 1, d.TrackingEpoch)
	require.True(t, d.TrackingEndsAt.Equal(last.Add(sessionLimit)))
}

func TestRecordCollection_SingleItemAdvancesTwice(t *testing.T) {
	t.Parallel()

	d := newTestDelivery(t, []ItemRef{{ProductID: "p1", ShopID: "s1"}})

	out, err := d.RecordCollection("p1", "s1", t0, sessionLimit)
	require.NoError(t, err)
	require.Equal(t, []StatusChange{
		{From: StatusPending, To: StatusCollecting},
		{From: StatusCollecting, To: StatusInTransit},
	}, out.Transitions)
	require.True(t, out.Ready)
	require.Equal(t, StatusInTransit, d.Status)
}

func TestRecordCollection_Errors(t *testing.T) {
	t.Parallel()

	d := newTestDelivery(t, threeItems())

	_, err := d.RecordCollection("p9", "s1", t0, sessionLimit)
	require.ErrorIs(t, err, apperr.ErrUnknownItem)
	_, err = d.RecordCollection("p1", "s2", t0, sessionLimit)
	require.ErrorIs(t, err, apperr.ErrUnknownItem, "product exists but at another shop")
	require.Equal(t, StatusPending, d.Status)

	_, err = d.RecordCollection("p1", "s1", t0, sessionLimit)
	require.NoError(t, err)
	_, err = d.RecordCollection("p1", "s1", t0, sessionLimit)
	require.ErrorIs(t, err, apperr.ErrAlreadyCollected)
	require.Equal(t, 1, d.CollectedCount())
}

func TestStartTransit(t *testing.T) {
	t.Parallel()

	d := newTestDelivery(t, threeItems())

	_, err := d.StartTransit(t0, sessionLimit)
	require.ErrorIs(t, err, apperr.ErrInvalidTransition)

	_, err = d.RecordCollection("p1", "s1", t0, sessionLimit)
	require.NoError(t, err)
	_, err = d.StartTransit(t0, sessionLimit)
	require.ErrorIs(t, err, apperr.ErrNotAllCollected)
	require.Equal(t, StatusCollecting, d.Status)

	// manual override path: every record collected but status left at Collecting
	for i := range d.Collections {
		d.Collections[i].Status = CollectionCollected
	}
	change, err := d.StartTransit(t0, sessionLimit)
	require.NoError(t, err)
	require.Equal(t, StatusChange{From: StatusCollecting, To: StatusInTransit}, change)
	require.True(t, d.GPSActive)
}

func collectAll(t *testing.T, d *Delivery) {
	t.Helper()
	for _, c := range d.Collections {
		if c.Status == CollectionCollected {
			continue
		}
		_, err := d.RecordCollection(c.ProductID, c.ShopID, t0, sessionLimit)
		require.NoError(t, err)
	}
}

func TestMarkDelivered(t *testing.T) {
	t.Parallel()

	d := newTestDelivery(t, threeItems())
	_, err := d.MarkDelivered(t0)
	require.ErrorIs(t, err, apperr.ErrInvalidTransition)

	collectAll(t, d)
	at := t0.Add(time.Hour)
	change, err := d.MarkDelivered(at)
	require.NoError(t, err)
	require.Equal(t, StatusChange{From: StatusInTransit, To: StatusDelivered}, change)
	require.False(t, d.GPSActive)
	require.True(t, d.Validated())
	require.True(t, d.DeliveredAt.Equal(at))

	_, err = d.MarkDelivered(at)
	require.ErrorIs(t, err, apperr.ErrInvalidTransition)
	_, err = d.RecordCollection("p1", "s1", at, sessionLimit)
	require.ErrorIs(t, err, apperr.ErrInvalidTransition)
	require.ErrorIs(t, d.UpdateLocation(Location{Lat: 1, Lng: 1}, at), apperr.ErrDeliveryNotActive)
	require.Equal(t, StatusDelivered, d.Status)
}

func TestUpdateLocation(t *testing.T) {
	t.Parallel()

	d := newTestDelivery(t, threeItems())
	require.ErrorIs(t, d.UpdateLocation(Location{Lat: 1, Lng: 2}, t0), apperr.ErrDeliveryNotActive)
	require.ErrorIs(t, d.UpdateLocation(Location{Lat: 200, Lng: 0}, t0), apperr.ErrDeliveryNotActive,
		"inactive delivery is checked before coordinates")
	require.Nil(t, d.LastKnownLocation)

	collectAll(t, d)
	require.NoError(t, d.UpdateLocation(Location{Lat: 1, Lng: 2}, t0))
	require.NoError(t, d.UpdateLocation(Location{Lat: 3, Lng: 4}, t0.Add(time.Second)))
	require.Equal(t, &Location{Lat: 3, Lng: 4}, d.LastKnownLocation)

	require.ErrorIs(t, d.UpdateLocation(Location{Lat: 100, Lng: 0}, t0), apperr.ErrInvalid)

	// ceiling reached
	late := d.TrackingEndsAt.Add(time.Second)
	require.True(t, d.TrackingExpired(late))
	require.ErrorIs(t, d.UpdateLocation(Location{Lat: 5, Lng: 6}, late), apperr.ErrDeliveryNotActive)
	require.Equal(t, &Location{Lat: 3, Lng: 4}, d.LastKnownLocation)
}

func TestTrackingSessionLifecycle(t *testing.T) {
	t.Parallel()

	d := newTestDelivery(t, threeItems())
	_, err := d.StopTracking()
	require.ErrorIs(t, err, apperr.ErrDeliveryNotActive)
	_, err = d.ResumeTracking(t0, sessionLimit)
	require.ErrorIs(t, err, apperr.ErrDeliveryNotActive)

	collectAll(t, d)
	epoch := d.TrackingEpoch

	require.False(t, d.ExpireTracking(epoch+1), "stale epoch is ignored")
	require.True(t, d.GPSActive)
	require.True(t, d.ExpireTracking(epoch))
	require.False(t, d.GPSActive)
	require.False(t, d.ExpireTracking(epoch))

	resumed, err := d.ResumeTracking(t0.Add(time.Minute), sessionLimit)
	require.NoError(t, err)
	require.True(t, resumed)
	require.Equal(t, epoch+1, d.TrackingEpoch)
	require.True(t, d.TrackingEndsAt.Equal(t0.Add(sessionLimit)), "ceiling counts from pickup")

	resumed, err = d.ResumeTracking(t0.Add(2*time.Minute), sessionLimit)
	require.NoError(t, err)
	require.False(t, resumed, "already running")

	stopped, err := d.StopTracking()
	require.NoError(t, err)
	require.True(t, stopped)
	stopped, err = d.StopTracking()
	require.NoError(t, err)
	require.False(t, stopped)
}

func TestResumeTracking_CeilingFromPickup(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		stop    bool
		at      time.Duration
		wantErr error
	}{
		{name: "stopped, before ceiling", stop: true, at: time.Hour},
		{name: "stopped, at ceiling", stop: true, at: sessionLimit, wantErr: apperr.ErrDeliveryNotActive},
		{name: "expired, past ceiling", at: sessionLimit + time.Minute, wantErr: apperr.ErrDeliveryNotActive},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			d := newTestDelivery(t, threeItems())
			collectAll(t, d)
			epoch := d.TrackingEpoch
			if tc.stop {
				_, err := d.StopTracking()
				require.NoError(t, err)
			}

			at := t0.Add(tc.at)
			resumed, err := d.ResumeTracking(at, sessionLimit)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				require.False(t, resumed)
				require.Equal(t, epoch, d.TrackingEpoch)
				require.False(t, d.TrackingActive(at))
				return
			}
			require.NoError(t, err)
			require.True(t, resumed)
			require.True(t, d.TrackingEndsAt.Equal(t0.Add(sessionLimit)))
			require.True(t, d.TrackingActive(at))
		})
	}
}

func TestRotateValidationCode(t *testing.T) {
	t.Parallel()

	d := newTestDelivery(t, threeItems())
	require.NoError(t, d.RotateValidationCode("SOMBAGO-ZZZZZZ"))
	require.Equal(t, "SOMBAGO-ZZZZZZ", d.ValidationCode)
	require.Equal(t, 2, d.CodeEpoch)
	require.ErrorIs(t, d.RotateValidationCode(" "), apperr.ErrInvalid)

	_, err := d.RecordCollection("p1", "s1", t0, sessionLimit)
	require.NoError(t, err)
	require.ErrorIs(t, d.RotateValidationCode("SOMBAGO-YYYYYY"), apperr.ErrInvalidTransition)
	require.Equal(t, "SOMBAGO-ZZZZZZ", d.ValidationCode)
}

func TestClone_IsDeep(t *testing.T) {
	t.Parallel()

	d := newTestDelivery(t, threeItems())
	collectAll(t, d)
	require.NoError(t, d.UpdateLocation(Location{Lat: 1, Lng: 1}, t0))

	c := d.Clone()
	c.Collections[0].Status = CollectionPending
	c.LastKnownLocation.Lat = 50
	*c.PickedUpAt = t0.Add(time.Hour)

	require.Equal(t, CollectionCollected, d.Collections[0].Status)
	require.Equal(t, 1.0, d.LastKnownLocation.Lat)
	require.True(t, d.PickedUpAt.Equal(t0))
}

func TestSnapshot(t *testing.T) {
	t.Parallel()

	d := newTestDelivery(t, threeItems())
	_, err := d.RecordCollection("p1", "s1", t0, sessionLimit)
	require.NoError(t, err)

	s := d.Snapshot()
	require.Equal(t, "d-1", s.DeliveryID)
	require.Equal(t, int64(42), s.OrderID)
	require.Equal(t, 1, s.CollectedCount)
	require.Equal(t, 3, s.TotalItems)
	require.Nil(t, s.DistanceToDestinationKm)

	s.Collections[1].Status = CollectionCollected
	require.Equal(t, CollectionPending, d.Collections[1].Status, "snapshot must not alias the aggregate")

	collectAll(t, d)
	require.NoError(t, d.UpdateLocation(Location{Lat: 14.70, Lng: -17.44}, t0))
	s = d.Snapshot()
	require.NotNil(t, s.DistanceToDestinationKm)
	require.InDelta(t, 1.11, *s.DistanceToDestinationKm, 0.01)
	require.NotNil(t, s.BearingToDestinationDeg)
}

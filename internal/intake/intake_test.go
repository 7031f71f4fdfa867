package intake

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lifeline/internal/model"
	"github.com/roach88/lifeline/internal/store"
	"github.com/roach88/lifeline/internal/testutil"
)

func newService(t *testing.T, opts ...Option) (*Service, *store.Store) {
	t.Helper()
	clk := testutil.NewManualClock(testutil.Epoch)
	st, err := store.Open(filepath.Join(t.TempDir(), "a.db"), store.WithClock(clk))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	opts = append([]Option{
		WithClock(clk),
		WithIDGenerator(testutil.NewSequenceGenerator()),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, opts...)
	svc, err := New("device-a", st, opts...)
	require.NoError(t, err)
	return svc, st
}

func validForm() Form {
	return Form{
		BloodType:     model.BloodTypeONeg,
		ComponentType: model.ComponentPlatelets,
		Units:         3,
		Urgency:       model.UrgencyHigh,
		ContactName:   "  Dr. Rao ",
		ContactPhone:  "+91-9000000000",
		Location:      &model.Location{Lat: 17.425412345, Lng: 78.451512345},
	}
}

func TestSubmit_CreatesOriginRecord(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()

	rec, err := svc.Submit(ctx, validForm())
	require.NoError(t, err)

	assert.Equal(t, testutil.SequenceID(1), rec.ID)
	assert.True(t, rec.IsOrigin())
	assert.Equal(t, "device-a", rec.OriginDeviceID)
	assert.Equal(t, "device-a", rec.LastRelayedBy)
	assert.Equal(t, model.StatusPendingSync, rec.Status)
	assert.Equal(t, model.DefaultMaxHops, rec.MaxHops)
	assert.Equal(t, "Dr. Rao", rec.ContactName)
	assert.Equal(t, testutil.Epoch, rec.CreatedAt)

	stored, err := st.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec, stored)

	entries, err := st.ReadLog(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.ActionEnqueued, entries[0].Action)
}

func TestSubmit_CustomMaxHops(t *testing.T) {
	svc, _ := newService(t, WithMaxHops(3))

	rec, err := svc.Submit(context.Background(), validForm())
	require.NoError(t, err)
	assert.Equal(t, 3, rec.MaxHops)
}

func TestNew_RejectsZeroMaxHops(t *testing.T) {
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	defer st.Close()

	_, err = New("device-a", st, WithMaxHops(0))
	assert.Error(t, err)
}

func TestSubmit_ValidationFailures(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*Form)
		field string
	}{
		{"missing location", func(f *Form) { f.Location = nil }, "location"},
		{"zero units", func(f *Form) { f.Units = 0 }, "units"},
		{"unknown blood type", func(f *Form) { f.BloodType = "C+" }, "bloodType"},
		{"unknown component", func(f *Form) { f.ComponentType = "SERUM" }, "componentType"},
		{"unknown urgency", func(f *Form) { f.Urgency = "URGENT" }, "urgency"},
		{"latitude out of range", func(f *Form) { f.Location = &model.Location{Lat: 91, Lng: 0} }, "location"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, st := newService(t)
			form := validForm()
			tt.edit(&form)

			_, err := svc.Submit(context.Background(), form)

			var verr *model.ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.field, verr.Field)

			all, err := st.ListAll(context.Background())
			require.NoError(t, err)
			assert.Empty(t, all)
		})
	}
}

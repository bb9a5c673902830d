package jobs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevakendra/mel/internal/ledger"
	"github.com/sevakendra/mel/internal/memstore"
	"github.com/sevakendra/mel/internal/model"
)

func TestOverdueReportLogsEachRental(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, time.January, 11, 7, 0, 0, 0, time.UTC)
	l := ledger.New(memstore.New(),
		ledger.WithClock(func() time.Time { return now }),
		ledger.WithLocation(time.UTC),
		ledger.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	e, err := l.AddEquipment(ctx, model.Equipment{Name: "Walker", TotalQuantity: 3, AvailableQuantity: 3, RentalDuration: 7})
	require.NoError(t, err)
	for _, p := range []struct {
		name   string
		pickup model.Date
	}{
		{"Late Patient", model.NewDate(2024, time.January, 2)},
		{"Due Today", model.NewDate(2024, time.January, 4)},
		{"Not Yet Due", model.NewDate(2024, time.January, 10)},
	} {
		_, err := l.CreateRental(ctx, model.NewRental{
			PatientName: p.name, MobileNumber: "9000000001", EquipmentID: e.ID, PickupDate: p.pickup,
		})
		require.NoError(t, err)
	}

	var logs bytes.Buffer
	n, err := OverdueReport(ctx, l, slog.New(slog.NewTextHandler(&logs, nil)))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	out := logs.String()
	assert.Contains(t, out, "overdue=1")
	assert.Contains(t, out, `patient="Late Patient"`)
	assert.Contains(t, out, "days_late=2")
	assert.NotContains(t, out, "Due Today")
}

type failingSource struct{}

func (failingSource) Today() model.Date { return model.NewDate(2024, time.January, 1) }

func (failingSource) Overdue(context.Context, model.Date) ([]model.Rental, error) {
	return nil, errors.New("store offline")
}

func TestOverdueReportPropagatesErrors(t *testing.T) {
	_, err := OverdueReport(context.Background(), failingSource{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.ErrorContains(t, err, "store offline")
}

func TestScheduleOverdueReport(t *testing.T) {
	s := NewScheduler(failingSource{}, time.UTC, slog.New(slog.NewTextHandler(io.Discard, nil)))

	assert.Error(t, s.ScheduleOverdueReport("every morning"))
	assert.Equal(t, 0, s.Jobs())

	require.NoError(t, s.ScheduleOverdueReport("0 0 7 * * *"))
	assert.Equal(t, 1, s.Jobs())

	s.Start()
	s.Stop()
}

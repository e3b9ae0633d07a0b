package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/appointments-api/internal/dto"
	"github.com/noah-isme/appointments-api/internal/models"
	appErrors "github.com/noah-isme/appointments-api/pkg/errors"
)

type agendaSourceStub struct {
	items    []models.Appointment
	from, to time.Time
}

func (s *agendaSourceStub) ListInRange(ctx context.Context, customerID string, from, to time.Time) ([]models.Appointment, error) {
	s.from, s.to = from, to
	return s.items, nil
}

func newExportServiceForTest(t *testing.T, source *agendaSourceStub) *ExportService {
	t.Helper()
	customers := customerLookupStub{customers: map[string]*models.Customer{"c1": {ID: "c1", Name: "Ana"}}}
	svc := NewExportService(source, customers, "America/Sao_Paulo", nil, zap.NewNop())
	svc.clock = func() time.Time { return time.Date(2026, 2, 2, 2, 0, 0, 0, time.UTC) }
	return svc
}

func sampleAgenda(t *testing.T) *agendaSourceStub {
	seriesID := "s1"
	return &agendaSourceStub{items: []models.Appointment{
		{ID: "a1", CustomerID: "c1", SeriesID: &seriesID, Title: "Physio", Notes: strPtr("bring towel"), StartsAt: at(t, "2026-02-02T12:00:00Z"), EndsAt: at(t, "2026-02-02T13:00:00Z")},
		{ID: "a2", CustomerID: "c1", Title: "Dentist", StartsAt: at(t, "2026-02-05T18:00:00Z"), EndsAt: at(t, "2026-02-05T18:30:00Z")},
	}}
}

func TestExportServiceCSVDefaults(t *testing.T) {
	source := sampleAgenda(t)
	svc := newExportServiceForTest(t, source)

	res, err := svc.Export(context.Background(), "c1", dto.ExportQuery{})
	require.NoError(t, err)
	assert.Equal(t, "text/csv", res.ContentType)
	// 02:00Z is still February 1st in São Paulo
	assert.Equal(t, "agenda_c1_2026-02-01_2026-03-02.csv", res.Filename)

	loc, _ := time.LoadLocation("America/Sao_Paulo")
	assert.True(t, source.from.Equal(time.Date(2026, 2, 1, 0, 0, 0, 0, loc)))
	assert.True(t, source.to.Equal(time.Date(2026, 3, 3, 0, 0, 0, 0, loc)))

	lines := strings.Split(strings.TrimSpace(string(res.Body)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "id,title,date,start,end,series_id,notes", lines[0])
	assert.Contains(t, lines[1], "a1,Physio,2026-02-02,09:00")
	assert.Contains(t, lines[1], "bring towel")
	assert.Contains(t, lines[2], "a2,Dentist,2026-02-05,15:00")
}

func TestExportServiceICS(t *testing.T) {
	svc := newExportServiceForTest(t, sampleAgenda(t))

	res, err := svc.Export(context.Background(), "c1", dto.ExportQuery{Format: "ics", From: "2026-02-01", To: "2026-02-07", Timezone: "UTC"})
	require.NoError(t, err)
	body := string(res.Body)
	assert.Equal(t, "agenda_c1_2026-02-01_2026-02-07.ics", res.Filename)
	assert.Contains(t, body, "BEGIN:VCALENDAR")
	assert.Contains(t, body, "UID:a1@appointments-api")
	assert.Contains(t, body, "DTSTART:20260202T120000Z")
	assert.Contains(t, body, "X-APPOINTMENT-SERIES:s1")
	assert.Equal(t, 2, strings.Count(body, "BEGIN:VEVENT"))
}

func TestExportServicePDF(t *testing.T) {
	svc := newExportServiceForTest(t, sampleAgenda(t))

	res, err := svc.Export(context.Background(), "c1", dto.ExportQuery{Format: "pdf"})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", res.ContentType)
	assert.True(t, strings.HasPrefix(string(res.Body), "%PDF"))
}

func TestExportServiceValidation(t *testing.T) {
	svc := newExportServiceForTest(t, sampleAgenda(t))
	ctx := context.Background()

	cases := []dto.ExportQuery{
		{Format: "xlsx"},
		{From: "02/01/2026"},
		{Timezone: "Mars/Olympus"},
		{From: "2026-02-10", To: "2026-02-01"},
		{From: "2026-01-01", To: "2027-01-02"},
	}
	for _, query := range cases {
		_, err := svc.Export(ctx, "c1", query)
		assert.True(t, appErrors.IsCode(err, appErrors.ErrValidation.Code), "%+v", query)
	}

	_, err := svc.Export(ctx, "c1", dto.ExportQuery{From: "2026-01-01", To: "2026-12-31"})
	assert.NoError(t, err)

	_, err = svc.Export(ctx, "ghost", dto.ExportQuery{})
	assert.True(t, appErrors.IsCode(err, appErrors.ErrNotFound.Code))
}

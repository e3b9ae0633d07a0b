package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/noah-isme/appointments-api/internal/dto"
	"github.com/noah-isme/appointments-api/internal/models"
	"github.com/noah-isme/appointments-api/internal/scheduling"
	appErrors "github.com/noah-isme/appointments-api/pkg/errors"
	"github.com/noah-isme/appointments-api/pkg/export"
)

const (
	defaultExportFormat = "csv"
	defaultExportDays   = 30
	maxExportDays       = 366
)

type agendaSource interface {
	ListInRange(ctx context.Context, customerID string, from, to time.Time) ([]models.Appointment, error)
}

// ExportService renders a customer's active appointments as a downloadable agenda.
type ExportService struct {
	appointments agendaSource
	customers    customerLookup
	renderers    map[string]export.Renderer
	defaultTZ    string
	clock        func() time.Time
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewExportService constructs an ExportService. Without explicit renderers
// csv, pdf and ics are available.
func NewExportService(appointments agendaSource, customers customerLookup, defaultTimezone string, validate *validator.Validate, logger *zap.Logger, renderers ...export.Renderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	if defaultTimezone == "" {
		defaultTimezone = "UTC"
	}
	if len(renderers) == 0 {
		renderers = []export.Renderer{export.NewCSVExporter(), export.NewPDFExporter(), export.NewICSExporter()}
	}
	byExt := make(map[string]export.Renderer, len(renderers))
	for _, r := range renderers {
		byExt[r.Extension()] = r
	}
	return &ExportService{
		appointments: appointments,
		customers:    customers,
		renderers:    byExt,
		defaultTZ:    defaultTimezone,
		clock:        time.Now,
		validator:    validate,
		logger:       logger,
	}
}

// Export renders appointments starting within [from, to] (inclusive civil
// dates in the requested timezone).
func (s *ExportService) Export(ctx context.Context, customerID string, query dto.ExportQuery) (result *dto.ExportResult, err error) {
	ctx, span := startSpan(ctx, "ExportService.Export", attribute.String("customer.id", customerID), attribute.String("export.format", query.Format))
	defer func() { endSpan(span, err) }()

	if err = s.validator.Struct(query); err != nil {
		return nil, invalidPayload(err, "invalid export parameters")
	}
	format := strings.ToLower(query.Format)
	if format == "" {
		format = defaultExportFormat
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Invalid("invalid export parameters", appErrors.FieldError{Field: "format", Message: "is not supported"})
	}

	tz := query.Timezone
	if tz == "" {
		tz = s.defaultTZ
	}
	loc, zoneErr := scheduling.LoadZone(tz)
	if zoneErr != nil {
		return nil, appErrors.Invalid("invalid export parameters", appErrors.FieldError{Field: "timezone", Message: "must be a valid IANA timezone"})
	}

	from, to, err := s.exportRange(query, loc)
	if err != nil {
		return nil, err
	}

	customer, err := s.customers.FindByID(ctx, customerID, false)
	if err != nil {
		return nil, notFoundOr(err, "customer not found", "failed to load customer")
	}

	start := from.In(loc)
	end := to.AddDays(1).In(loc)
	items, err := s.appointments.ListInRange(ctx, customerID, start, end)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to load appointments")
	}

	agenda := export.Agenda{
		Title:       fmt.Sprintf("Agenda %s (%s to %s)", customer.Name, from, to),
		Location:    loc,
		GeneratedAt: s.clock().UTC(),
		Events:      make([]export.Event, len(items)),
	}
	for i, item := range items {
		ev := export.Event{
			UID:         item.ID,
			Title:       item.Title,
			Start:       item.StartsAt,
			End:         item.EndsAt,
			CreatedAt:   item.CreatedAt,
			LastUpdated: item.UpdatedAt,
		}
		if item.Notes != nil {
			ev.Notes = *item.Notes
		}
		if item.SeriesID != nil {
			ev.SeriesID = *item.SeriesID
		}
		agenda.Events[i] = ev
	}

	body, err := renderer.Render(agenda)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render agenda")
	}
	s.logger.Debug("agenda exported",
		zap.String("customer_id", customerID),
		zap.String("format", format),
		zap.Int("events", len(items)),
	)
	return &dto.ExportResult{
		Filename:    fmt.Sprintf("agenda_%s_%s_%s.%s", sanitizeFilename(customerID), from, to, renderer.Extension()),
		ContentType: renderer.ContentType(),
		Body:        body,
	}, nil
}

// exportRange resolves the inclusive date range; it defaults to the next
// thirty days from today in loc.
func (s *ExportService) exportRange(query dto.ExportQuery, loc *time.Location) (models.Date, models.Date, error) {
	today := models.DateOf(s.clock().In(loc))
	from, to := today, today.AddDays(defaultExportDays-1)
	if query.From != "" {
		parsed, err := models.ParseDate(query.From)
		if err != nil {
			return from, to, appErrors.Invalid("invalid export parameters", appErrors.FieldError{Field: "from", Message: "must match 2006-01-02"})
		}
		from = parsed
		if query.To == "" {
			to = from.AddDays(defaultExportDays - 1)
		}
	}
	if query.To != "" {
		parsed, err := models.ParseDate(query.To)
		if err != nil {
			return from, to, appErrors.Invalid("invalid export parameters", appErrors.FieldError{Field: "to", Message: "must match 2006-01-02"})
		}
		to = parsed
	}
	if to.Before(from) {
		return from, to, appErrors.Invalid("invalid export parameters", appErrors.FieldError{Field: "to", Message: "must be on or after from"})
	}
	if from.AddDays(maxExportDays - 1).Before(to) {
		return from, to, appErrors.Invalid("invalid export parameters", appErrors.FieldError{Field: "to", Message: fmt.Sprintf("range may span at most %d days", maxExportDays)})
	}
	return from, to, nil
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

// Package fulfillment holds the admin-side use cases of the fulfillment
// router: per-studio lab configuration, connection tests and the stored
// standard-path orders.
package fulfillment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domain "github.com/photolab/backend/internal/domain/fulfillment"
	"github.com/photolab/backend/internal/infrastructure/logger"
	"github.com/photolab/backend/internal/infrastructure/telemetry"
)

// TesterLookup returns the connection tester of a lab
type TesterLookup interface {
	Tester(code domain.ProviderCode) (domain.ConnectionTester, bool)
}

// ProviderSettingsService manages per-studio lab settings. It also implements
// domain.SettingsProvider for the checkout path.
type ProviderSettingsService struct {
	repo    domain.ProviderSettingsRepository
	sealer  domain.CredentialSealer
	testers TesterLookup
	now     func() time.Time
	logger  *zap.Logger
}

// NewProviderSettingsService creates a new ProviderSettingsService
func NewProviderSettingsService(
	repo domain.ProviderSettingsRepository,
	sealer domain.CredentialSealer,
	testers TesterLookup,
	log *zap.Logger,
) *ProviderSettingsService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProviderSettingsService{
		repo:    repo,
		sealer:  sealer,
		testers: testers,
		now:     time.Now,
		logger:  log.Named("provider_settings"),
	}
}

// Load returns the decoded settings of a studio. A row that cannot be
// decoded is replaced by the disabled default and logged; only a repository
// failure is returned as an error.
func (s *ProviderSettingsService) Load(ctx context.Context, studioID uuid.UUID) (*domain.StudioSettings, error) {
	records, err := s.repo.FindByStudio(ctx, studioID)
	if err != nil {
		return nil, fmt.Errorf("load provider settings: %w", err)
	}

	settings := domain.DefaultStudioSettings(studioID)
	log := logger.Enrich(ctx, s.logger)
	for _, rec := range records {
		code, err := domain.ParseProviderCode(rec.Provider)
		if err != nil || !code.IsExternal() {
			log.Warn("Ignoring stored settings for unknown provider",
				zap.String("studio_id", studioID.String()),
				zap.String("provider", rec.Provider),
			)
			continue
		}
		creds, err := s.sealer.Open(rec.SealedCredentials)
		if err != nil {
			log.Warn("Stored credentials cannot be opened, using defaults",
				zap.String("studio_id", studioID.String()),
				zap.String("provider", rec.Provider),
				zap.Error(err),
			)
			continue
		}
		settings.Set(domain.ProviderSettings{
			Provider:    code,
			Enabled:     rec.Enabled,
			Sandbox:     rec.Sandbox,
			Credentials: creds,
			UpdatedAt:   rec.UpdatedAt,
		})
	}
	return settings, nil
}

// GetSettings returns every lab of the studio with masked credentials
func (s *ProviderSettingsService) GetSettings(ctx context.Context, studioID uuid.UUID) (*ProviderSettingsView, error) {
	settings, err := s.Load(ctx, studioID)
	if err != nil {
		return nil, err
	}
	route := settings.SelectRoute()

	view := &ProviderSettingsView{
		StudioID: studioID,
		Route:    route.Provider,
		Labs:     make([]ProviderView, 0, len(domain.Priority)),
	}
	for _, code := range domain.Priority {
		view.Labs = append(view.Labs, toProviderView(settings.Get(code), code == route.Provider))
	}
	return view, nil
}

// UpdateProvider changes one lab of the studio. Enabling a lab requires its
// credentials to be present after the update.
func (s *ProviderSettingsService) UpdateProvider(
	ctx context.Context,
	studioID uuid.UUID,
	code domain.ProviderCode,
	input UpdateProviderInput,
) (*ProviderView, error) {
	if !code.IsExternal() {
		return nil, domain.ErrInvalidProviderCode
	}
	ctx, span := telemetry.StartServiceSpan(ctx, "provider_settings", "update",
		telemetry.SpanAttrStudioID, studioID.String(),
		telemetry.SpanAttrProvider, code.String(),
	)
	defer span.End()

	settings, err := s.Load(ctx, studioID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	ps := settings.Get(code)
	if input.Enabled != nil {
		ps.Enabled = *input.Enabled
	}
	if input.Sandbox != nil {
		ps.Sandbox = *input.Sandbox
	}
	if input.Credentials != nil {
		ps.Credentials = mergeCredentials(ps.Credentials, *input.Credentials)
	}
	if ps.Enabled && !ps.HasCredentials() {
		return nil, fmt.Errorf("%w: %s", domain.ErrMissingCredentials, code.DisplayName())
	}

	sealed, err := s.sealer.Seal(ps.Credentials)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("seal credentials: %w", err)
	}
	ps.UpdatedAt = s.now()
	record := &domain.ProviderSettingsRecord{
		StudioID:          studioID,
		Provider:          code.String(),
		Enabled:           ps.Enabled,
		Sandbox:           ps.Sandbox,
		SealedCredentials: sealed,
		UpdatedAt:         ps.UpdatedAt,
	}
	if err := s.repo.Save(ctx, record); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("save provider settings: %w", err)
	}

	settings.Set(ps)
	logger.Enrich(ctx, s.logger).Info("Provider settings updated",
		zap.String("studio_id", studioID.String()),
		zap.String("provider", code.String()),
		zap.Bool("enabled", ps.Enabled),
		zap.Bool("sandbox", ps.Sandbox),
	)
	view := toProviderView(settings.Get(code), settings.SelectRoute().Provider == code)
	return &view, nil
}

// TestConnection verifies the stored credentials of a lab without placing an order
func (s *ProviderSettingsService) TestConnection(ctx context.Context, studioID uuid.UUID, code domain.ProviderCode) error {
	if !code.IsExternal() {
		return domain.ErrInvalidProviderCode
	}
	settings, err := s.Load(ctx, studioID)
	if err != nil {
		return err
	}
	ps := settings.Get(code)
	if !ps.HasCredentials() {
		return fmt.Errorf("%w: %s", domain.ErrMissingCredentials, code.DisplayName())
	}
	tester, ok := s.testers.Tester(code)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrProviderNotRegistered, code)
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "provider_settings", "test_connection",
		telemetry.SpanAttrStudioID, studioID.String(),
		telemetry.SpanAttrProvider, code.String(),
	)
	defer span.End()

	if err := tester.TestConnection(ctx, ps); err != nil {
		telemetry.RecordError(span, err)
		logger.Enrich(ctx, s.logger).Warn("Provider connection test failed",
			zap.String("provider", code.String()),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func toProviderView(ps domain.ProviderSettings, active bool) ProviderView {
	v := ProviderView{
		Provider:       ps.Provider,
		DisplayName:    ps.Provider.DisplayName(),
		Enabled:        ps.Enabled,
		Sandbox:        ps.Sandbox,
		Active:         active,
		HasCredentials: ps.HasCredentials(),
		Credentials:    ps.Credentials.Masked(),
	}
	if !ps.UpdatedAt.IsZero() {
		t := ps.UpdatedAt
		v.UpdatedAt = &t
	}
	return v
}

// Blank fields keep the stored secret.
func mergeCredentials(current, update domain.Credentials) domain.Credentials {
	if update.ConsumerKey != "" {
		current.ConsumerKey = update.ConsumerKey
	}
	if update.ConsumerSecret != "" {
		current.ConsumerSecret = update.ConsumerSecret
	}
	if update.APIKey != "" {
		current.APIKey = update.APIKey
	}
	if update.APISecret != "" {
		current.APISecret = update.APISecret
	}
	return current
}

// Ensure ProviderSettingsService implements SettingsProvider
var _ domain.SettingsProvider = (*ProviderSettingsService)(nil)

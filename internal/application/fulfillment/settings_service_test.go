package fulfillment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	domain "github.com/photolab/backend/internal/domain/fulfillment"
	"github.com/photolab/backend/internal/infrastructure/secrets"
)

// MockProviderSettingsRepository is a mock implementation of domain.ProviderSettingsRepository
type MockProviderSettingsRepository struct {
	mock.Mock
}

func (m *MockProviderSettingsRepository) FindByStudio(ctx context.Context, studioID uuid.UUID) ([]domain.ProviderSettingsRecord, error) {
	args := m.Called(ctx, studioID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ProviderSettingsRecord), args.Error(1)
}

func (m *MockProviderSettingsRepository) Save(ctx context.Context, record *domain.ProviderSettingsRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

// MockConnectionTester is a mock implementation of domain.ConnectionTester
type MockConnectionTester struct {
	mock.Mock
}

func (m *MockConnectionTester) TestConnection(ctx context.Context, settings domain.ProviderSettings) error {
	args := m.Called(ctx, settings)
	return args.Error(0)
}

type testerMap map[domain.ProviderCode]domain.ConnectionTester

func (t testerMap) Tester(code domain.ProviderCode) (domain.ConnectionTester, bool) {
	tester, ok := t[code]
	return tester, ok
}

func newTestSealer() *secrets.SecretboxSealer {
	var key [32]byte
	copy(key[:], "0123456789abcdef0123456789abcdef")
	return secrets.NewSecretboxSealer(key)
}

func sealedRecord(t *testing.T, sealer domain.CredentialSealer, studioID uuid.UUID, provider string, enabled bool, creds domain.Credentials) domain.ProviderSettingsRecord {
	t.Helper()
	sealed, err := sealer.Seal(creds)
	require.NoError(t, err)
	return domain.ProviderSettingsRecord{
		StudioID:          studioID,
		Provider:          provider,
		Enabled:           enabled,
		Sandbox:           true,
		SealedCredentials: sealed,
		UpdatedAt:         time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
	}
}

var whccCreds = domain.Credentials{ConsumerKey: "consumer-key-1234", ConsumerSecret: "consumer-secret-5678"}

func TestProviderSettingsService_Load(t *testing.T) {
	sealer := newTestSealer()
	studioID := uuid.New()
	repo := new(MockProviderSettingsRepository)
	repo.On("FindByStudio", mock.Anything, studioID).Return([]domain.ProviderSettingsRecord{
		sealedRecord(t, sealer, studioID, "whcc", true, whccCreds),
		sealedRecord(t, sealer, studioID, "mpix", false, domain.Credentials{}),
	}, nil)

	service := NewProviderSettingsService(repo, sealer, testerMap{}, nil)
	settings, err := service.Load(context.Background(), studioID)
	require.NoError(t, err)

	whcc := settings.Get(domain.ProviderWHCC)
	assert.True(t, whcc.Enabled)
	assert.Equal(t, whccCreds, whcc.Credentials)
	assert.Equal(t, studioID, whcc.StudioID)
	assert.False(t, settings.Get(domain.ProviderMpix).Enabled)
	assert.False(t, settings.Get(domain.ProviderROES).Enabled)
	assert.Equal(t, domain.ProviderWHCC, settings.SelectRoute().Provider)
}

func TestProviderSettingsService_Load_MalformedRowsFallBack(t *testing.T) {
	sealer := newTestSealer()
	studioID := uuid.New()
	corrupt := sealedRecord(t, sealer, studioID, "whcc", true, whccCreds)
	corrupt.SealedCredentials[len(corrupt.SealedCredentials)-1] ^= 0xFF

	repo := new(MockProviderSettingsRepository)
	repo.On("FindByStudio", mock.Anything, studioID).Return([]domain.ProviderSettingsRecord{
		corrupt,
		sealedRecord(t, sealer, studioID, "fotomoto", true, whccCreds),
		sealedRecord(t, sealer, studioID, "standard", true, domain.Credentials{}),
		sealedRecord(t, sealer, studioID, "roes", true, domain.Credentials{APIKey: "roes-key"}),
	}, nil)

	core, logs := observer.New(zapcore.WarnLevel)
	service := NewProviderSettingsService(repo, sealer, testerMap{}, zap.New(core))
	settings, err := service.Load(context.Background(), studioID)
	require.NoError(t, err)

	assert.False(t, settings.Get(domain.ProviderWHCC).Enabled, "unsealable row falls back to disabled")
	assert.True(t, settings.Get(domain.ProviderROES).Enabled)
	assert.Equal(t, domain.ProviderROES, settings.SelectRoute().Provider)
	assert.Equal(t, 3, logs.Len())
}

func TestProviderSettingsService_Load_RepositoryError(t *testing.T) {
	repo := new(MockProviderSettingsRepository)
	repo.On("FindByStudio", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	service := NewProviderSettingsService(repo, newTestSealer(), testerMap{}, nil)
	_, err := service.Load(context.Background(), uuid.New())
	assert.ErrorContains(t, err, "connection refused")
}

func TestProviderSettingsService_GetSettings(t *testing.T) {
	sealer := newTestSealer()
	studioID := uuid.New()
	repo := new(MockProviderSettingsRepository)
	repo.On("FindByStudio", mock.Anything, studioID).Return([]domain.ProviderSettingsRecord{
		sealedRecord(t, sealer, studioID, "mpix", true, domain.Credentials{APIKey: "mpix-key-abcd", APISecret: "mpix-secret-wxyz"}),
	}, nil)

	service := NewProviderSettingsService(repo, sealer, testerMap{}, nil)
	view, err := service.GetSettings(context.Background(), studioID)
	require.NoError(t, err)

	assert.Equal(t, domain.ProviderMpix, view.Route)
	require.Len(t, view.Labs, 3)
	assert.Equal(t, domain.ProviderWHCC, view.Labs[0].Provider)
	assert.False(t, view.Labs[0].Active)
	assert.Nil(t, view.Labs[0].UpdatedAt)

	mpix := view.Labs[1]
	assert.Equal(t, "Mpix", mpix.DisplayName)
	assert.True(t, mpix.Active)
	assert.True(t, mpix.HasCredentials)
	assert.Equal(t, "****abcd", mpix.Credentials.APIKey)
	assert.NotContains(t, mpix.Credentials.APISecret, "mpix-secret")
	assert.NotNil(t, mpix.UpdatedAt)
}

func TestProviderSettingsService_UpdateProvider(t *testing.T) {
	sealer := newTestSealer()
	studioID := uuid.New()
	repo := new(MockProviderSettingsRepository)
	repo.On("FindByStudio", mock.Anything, studioID).Return([]domain.ProviderSettingsRecord{}, nil)

	var saved *domain.ProviderSettingsRecord
	repo.On("Save", mock.Anything, mock.AnythingOfType("*fulfillment.ProviderSettingsRecord")).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*domain.ProviderSettingsRecord) }).
		Return(nil).Once()

	service := NewProviderSettingsService(repo, sealer, testerMap{}, nil)
	enabled, sandbox := true, false
	view, err := service.UpdateProvider(context.Background(), studioID, domain.ProviderWHCC, UpdateProviderInput{
		Enabled:     &enabled,
		Sandbox:     &sandbox,
		Credentials: &whccCreds,
	})
	require.NoError(t, err)

	assert.True(t, view.Enabled)
	assert.False(t, view.Sandbox)
	assert.True(t, view.Active)
	assert.Equal(t, "****1234", view.Credentials.ConsumerKey)

	require.NotNil(t, saved)
	assert.Equal(t, "whcc", saved.Provider)
	assert.Equal(t, studioID, saved.StudioID)
	assert.NotContains(t, string(saved.SealedCredentials), "consumer-secret")
	opened, err := sealer.Open(saved.SealedCredentials)
	require.NoError(t, err)
	assert.Equal(t, whccCreds, opened)
}

func TestProviderSettingsService_UpdateProvider_KeepsBlankCredentialFields(t *testing.T) {
	sealer := newTestSealer()
	studioID := uuid.New()
	repo := new(MockProviderSettingsRepository)
	repo.On("FindByStudio", mock.Anything, studioID).Return([]domain.ProviderSettingsRecord{
		sealedRecord(t, sealer, studioID, "whcc", true, whccCreds),
	}, nil)

	var saved *domain.ProviderSettingsRecord
	repo.On("Save", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*domain.ProviderSettingsRecord) }).
		Return(nil)

	service := NewProviderSettingsService(repo, sealer, testerMap{}, nil)
	_, err := service.UpdateProvider(context.Background(), studioID, domain.ProviderWHCC, UpdateProviderInput{
		Credentials: &domain.Credentials{ConsumerKey: "rotated-key"},
	})
	require.NoError(t, err)

	opened, err := sealer.Open(saved.SealedCredentials)
	require.NoError(t, err)
	assert.Equal(t, "rotated-key", opened.ConsumerKey)
	assert.Equal(t, whccCreds.ConsumerSecret, opened.ConsumerSecret)
	assert.True(t, saved.Enabled)
}

func TestProviderSettingsService_UpdateProvider_Errors(t *testing.T) {
	enabled := true

	t.Run("enabling without credentials", func(t *testing.T) {
		repo := new(MockProviderSettingsRepository)
		repo.On("FindByStudio", mock.Anything, mock.Anything).Return([]domain.ProviderSettingsRecord{}, nil)
		service := NewProviderSettingsService(repo, newTestSealer(), testerMap{}, nil)

		_, err := service.UpdateProvider(context.Background(), uuid.New(), domain.ProviderMpix, UpdateProviderInput{
			Enabled:     &enabled,
			Credentials: &domain.Credentials{APIKey: "only-key"},
		})
		assert.ErrorIs(t, err, domain.ErrMissingCredentials)
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("standard is not configurable", func(t *testing.T) {
		service := NewProviderSettingsService(new(MockProviderSettingsRepository), newTestSealer(), testerMap{}, nil)
		_, err := service.UpdateProvider(context.Background(), uuid.New(), domain.ProviderStandard, UpdateProviderInput{Enabled: &enabled})
		assert.ErrorIs(t, err, domain.ErrInvalidProviderCode)
	})

	t.Run("save failure", func(t *testing.T) {
		repo := new(MockProviderSettingsRepository)
		repo.On("FindByStudio", mock.Anything, mock.Anything).Return([]domain.ProviderSettingsRecord{}, nil)
		repo.On("Save", mock.Anything, mock.Anything).Return(errors.New("constraint violation"))
		service := NewProviderSettingsService(repo, newTestSealer(), testerMap{}, nil)

		_, err := service.UpdateProvider(context.Background(), uuid.New(), domain.ProviderROES, UpdateProviderInput{
			Enabled:     &enabled,
			Credentials: &domain.Credentials{APIKey: "roes-key"},
		})
		assert.ErrorContains(t, err, "constraint violation")
	})
}

func TestProviderSettingsService_TestConnection(t *testing.T) {
	sealer := newTestSealer()
	studioID := uuid.New()
	repo := new(MockProviderSettingsRepository)
	repo.On("FindByStudio", mock.Anything, studioID).Return([]domain.ProviderSettingsRecord{
		sealedRecord(t, sealer, studioID, "whcc", false, whccCreds),
	}, nil)

	tester := new(MockConnectionTester)
	tester.On("TestConnection", mock.Anything, mock.MatchedBy(func(ps domain.ProviderSettings) bool {
		return ps.Provider == domain.ProviderWHCC && ps.Credentials == whccCreds
	})).Return(nil).Once()

	service := NewProviderSettingsService(repo, sealer, testerMap{domain.ProviderWHCC: tester}, nil)
	require.NoError(t, service.TestConnection(context.Background(), studioID, domain.ProviderWHCC))
	tester.AssertExpectations(t)

	t.Run("missing credentials", func(t *testing.T) {
		err := service.TestConnection(context.Background(), studioID, domain.ProviderMpix)
		assert.ErrorIs(t, err, domain.ErrMissingCredentials)
	})

	t.Run("tester error is returned", func(t *testing.T) {
		tester.On("TestConnection", mock.Anything, mock.Anything).Return(domain.ErrProviderAuthFailed).Once()
		err := service.TestConnection(context.Background(), studioID, domain.ProviderWHCC)
		assert.ErrorIs(t, err, domain.ErrProviderAuthFailed)
	})

	t.Run("no tester registered", func(t *testing.T) {
		service := NewProviderSettingsService(repo, sealer, testerMap{}, nil)
		err := service.TestConnection(context.Background(), studioID, domain.ProviderWHCC)
		assert.ErrorIs(t, err, domain.ErrProviderNotRegistered)
	})
}

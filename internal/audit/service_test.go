package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/presenca/discovery-audit/internal/model"
	"github.com/presenca/discovery-audit/internal/queue"
	"github.com/presenca/discovery-audit/internal/store"
	"github.com/presenca/discovery-audit/pkg/places"
)

type mockPlacesClient struct {
	mock.Mock
}

func (m *mockPlacesClient) SearchBusiness(ctx context.Context, name, location string) (*model.Business, error) {
	args := m.Called(ctx, name, location)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Business), args.Error(1)
}

func (m *mockPlacesClient) GetDetails(ctx context.Context, placeID string) (*model.Business, error) {
	args := m.Called(ctx, placeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Business), args.Error(1)
}

func (m *mockPlacesClient) GetReviews(ctx context.Context, placeID string, limit int) ([]model.Review, error) {
	args := m.Called(ctx, placeID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Review), args.Error(1)
}

func (m *mockPlacesClient) FindNearby(ctx context.Context, q places.NearbyQuery) ([]model.Business, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Business), args.Error(1)
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func foundBusiness() *model.Business {
	return &model.Business{PlaceID: "place-1", Name: "Padaria do Zé", City: "São Paulo"}
}

func TestCreateEnqueuesPendingAudit(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	q := queue.NewMemory(4)
	placesMock := new(mockPlacesClient)
	placesMock.On("SearchBusiness", mock.Anything, "Padaria do Zé", "São Paulo").Return(foundBusiness(), nil)

	svc := NewService(st, placesMock, q, 24*time.Hour)
	result, err := svc.Create(ctx, Request{BusinessName: "Padaria do Zé", Location: "São Paulo"})
	require.NoError(t, err)
	assert.False(t, result.Cached)
	assert.Equal(t, model.AuditStatusPending, result.Audit.Status)

	id, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, result.Audit.ID, id)
}

func TestCreateReturnsCachedAudit(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	q := queue.NewMemory(4)
	placesMock := new(mockPlacesClient)
	placesMock.On("SearchBusiness", mock.Anything, mock.Anything, mock.Anything).Return(foundBusiness(), nil)

	svc := NewService(st, placesMock, q, 24*time.Hour)

	first, err := svc.Create(ctx, Request{BusinessName: "Padaria do Zé", Location: "São Paulo"})
	require.NoError(t, err)
	require.NoError(t, st.MarkProcessing(ctx, first.Audit.ID))
	require.NoError(t, st.CompleteAudit(ctx, first.Audit.ID, &model.AuditResult{DiscoveryScore: 62}))

	second, err := svc.Create(ctx, Request{BusinessName: "Padaria do Zé", Location: "São Paulo"})
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Audit.ID, second.Audit.ID)

	// The cache hit must not enqueue anything new.
	dequeueCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	id, err := q.Dequeue(dequeueCtx)
	require.NoError(t, err)
	assert.Equal(t, first.Audit.ID, id)
	_, err = q.Dequeue(dequeueCtx)
	assert.Error(t, err)
}

func TestCreateValidatesInput(t *testing.T) {
	st := newTestStore(t)
	svc := NewService(st, new(mockPlacesClient), queue.NewMemory(1), 0)

	_, err := svc.Create(context.Background(), Request{Location: "São Paulo"})
	assert.Error(t, err)

	_, err = svc.Create(context.Background(), Request{BusinessName: "Padaria"})
	assert.Error(t, err)

	_, err = svc.Create(context.Background(), Request{
		BusinessName: "Padaria",
		Location:     "São Paulo",
		DeliveryMode: model.DeliveryModeMessaging,
	})
	assert.Error(t, err, "messaging mode without a contact")
}

func TestCreatePropagatesLookupErrors(t *testing.T) {
	st := newTestStore(t)
	placesMock := new(mockPlacesClient)
	placesMock.On("SearchBusiness", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, &model.NotFoundError{Name: "Padaria Fantasma", Location: "Lugar Nenhum"})

	svc := NewService(st, placesMock, queue.NewMemory(1), 0)
	_, err := svc.Create(context.Background(), Request{BusinessName: "Padaria Fantasma", Location: "Lugar Nenhum"})
	assert.True(t, model.IsNotFound(err))

	audits, listErr := st.ListAudits(context.Background(), store.AuditFilter{})
	require.NoError(t, listErr)
	assert.Empty(t, audits)
}

func TestCreateSurvivesEnqueueFailure(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	q := queue.NewMemory(1)
	require.NoError(t, q.Close())

	placesMock := new(mockPlacesClient)
	placesMock.On("SearchBusiness", mock.Anything, mock.Anything, mock.Anything).Return(foundBusiness(), nil)

	svc := NewService(st, placesMock, q, 0)
	result, err := svc.Create(ctx, Request{BusinessName: "Padaria do Zé", Location: "São Paulo"})
	require.NoError(t, err)

	// The pending row survives for a restart to requeue.
	got, err := st.GetAudit(ctx, result.Audit.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AuditStatusPending, got.Status)
}

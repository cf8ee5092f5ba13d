package location

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tabiji-app/tabiji/internal/app/models"
)

type MockLocationRepo struct {
	mock.Mock
}

func (m *MockLocationRepo) GetByID(ctx context.Context, id string) (*models.Location, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Location), args.Error(1)
}

func (m *MockLocationRepo) ListByIDs(ctx context.Context, ids []string) ([]models.Location, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Location), args.Error(1)
}

func (m *MockLocationRepo) ListByFilter(ctx context.Context, filter models.LocationFilter) ([]models.Location, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Location), args.Error(1)
}

func (m *MockLocationRepo) CountByCityAndCategory(ctx context.Context, city string) (map[string]int, error) {
	args := m.Called(ctx, city)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int), args.Error(1)
}

func TestServiceGetLocationCachesResult(t *testing.T) {
	repo := new(MockLocationRepo)
	svc := NewServiceImpl(repo, zap.NewNop())
	ctx := context.Background()

	want := &models.Location{ID: "tokyo-senso-ji", Name: "Senso-ji"}
	repo.On("GetByID", mock.Anything, "tokyo-senso-ji").Return(want, nil).Once()

	first, err := svc.GetLocation(ctx, "tokyo-senso-ji")
	require.NoError(t, err)
	second, err := svc.GetLocation(ctx, "tokyo-senso-ji")
	require.NoError(t, err)

	assert.Equal(t, want, first)
	assert.Equal(t, want, second)
	repo.AssertNumberOfCalls(t, "GetByID", 1)
}

func TestServiceGetLocationErrorIsNotCached(t *testing.T) {
	repo := new(MockLocationRepo)
	svc := NewServiceImpl(repo, zap.NewNop())
	ctx := context.Background()

	repo.On("GetByID", mock.Anything, "flaky").Return(nil, errors.New("connection reset")).Twice()

	_, err := svc.GetLocation(ctx, "flaky")
	require.Error(t, err)
	_, err = svc.GetLocation(ctx, "flaky")
	require.Error(t, err)

	repo.AssertNumberOfCalls(t, "GetByID", 2)
}

func TestServiceListLocationsClampsPaging(t *testing.T) {
	tests := []struct {
		name       string
		in         models.LocationFilter
		wantLimit  int
		wantOffset int
	}{
		{"zero limit gets the default", models.LocationFilter{}, defaultListLimit, 0},
		{"oversized limit is capped", models.LocationFilter{Limit: 5000}, maxListLimit, 0},
		{"negative offset is reset", models.LocationFilter{Limit: 10, Offset: -3}, 10, 0},
		{"sane values pass through", models.LocationFilter{Limit: 25, Offset: 25}, 25, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockLocationRepo)
			svc := NewServiceImpl(repo, zap.NewNop())

			repo.On("ListByFilter", mock.Anything, mock.MatchedBy(func(f models.LocationFilter) bool {
				return f.Limit == tt.wantLimit && f.Offset == tt.wantOffset
			})).Return([]models.Location{}, nil).Once()

			_, err := svc.ListLocations(context.Background(), tt.in)
			require.NoError(t, err)
			repo.AssertExpectations(t)
		})
	}
}

func TestServiceCategoryAvailabilityCaches(t *testing.T) {
	repo := new(MockLocationRepo)
	svc := NewServiceImpl(repo, zap.NewNop())
	ctx := context.Background()

	counts := map[string]int{models.CategoryCulture: 12, models.CategoryNature: 4}
	repo.On("CountByCityAndCategory", mock.Anything, "kyoto").Return(counts, nil).Once()

	first, err := svc.CategoryAvailability(ctx, "kyoto")
	require.NoError(t, err)
	second, err := svc.CategoryAvailability(ctx, "kyoto")
	require.NoError(t, err)

	assert.Equal(t, counts, first)
	assert.Equal(t, counts, second)
	repo.AssertNumberOfCalls(t, "CountByCityAndCategory", 1)
}

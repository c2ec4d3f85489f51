package service

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/rajvir-app/mining-server/internal/model"
	"github.com/rajvir-app/mining-server/internal/repository"
)

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*model.User, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepo) FindAll(ctx context.Context, limit, offset int) ([]model.User, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *mockUserRepo) Search(ctx context.Context, query string, limit, offset int) ([]model.User, error) {
	args := m.Called(ctx, query, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *mockUserRepo) Create(ctx context.Context, params model.CreateUserParams) (*model.User, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepo) SaveMining(ctx context.Context, id string, snap model.MiningSnapshot) error {
	args := m.Called(ctx, id, snap)
	return args.Error(0)
}

func (m *mockUserRepo) SaveProfile(ctx context.Context, id string, profile model.ProfileDelta) error {
	args := m.Called(ctx, id, profile)
	return args.Error(0)
}

func (m *mockUserRepo) SaveLanguage(ctx context.Context, id string, language string) error {
	args := m.Called(ctx, id, language)
	return args.Error(0)
}

func (m *mockUserRepo) Update(ctx context.Context, id string, params model.UpdateUserParams) (*model.User, error) {
	args := m.Called(ctx, id, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockUserRepo) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockUserRepo) SumPoints(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockUserRepo) WithTx(tx *sqlx.Tx) repository.UserRepository {
	return m
}

type mockRechargeRepo struct {
	mock.Mock
}

func (m *mockRechargeRepo) Create(ctx context.Context, params model.CreateRechargeParams) (*model.RechargeRecord, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RechargeRecord), args.Error(1)
}

func (m *mockRechargeRepo) FindByUserID(ctx context.Context, userID string, limit, offset int) ([]model.RechargeRecord, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.RechargeRecord), args.Error(1)
}

func (m *mockRechargeRepo) CountByUserID(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *mockRechargeRepo) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockRechargeRepo) DeleteByUserID(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *mockRechargeRepo) WithTx(tx *sqlx.Tx) repository.RechargeRepository {
	return m
}

type mockAdminSessionRepo struct {
	mock.Mock
}

func (m *mockAdminSessionRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*model.AdminSession, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AdminSession), args.Error(1)
}

func (m *mockAdminSessionRepo) Create(ctx context.Context, params model.CreateAdminSessionParams) (*model.AdminSession, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AdminSession), args.Error(1)
}

func (m *mockAdminSessionRepo) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	args := m.Called(ctx, tokenHash)
	return args.Error(0)
}

func (m *mockAdminSessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func newAdminService(
	users *mockUserRepo,
	recharges *mockRechargeRepo,
	sessions *mockAdminSessionRepo,
	passwordHash string,
) *AdminService {
	store := new(mockStore)
	miningSvc := NewMiningService(store, nil, &fixedClock{}, 18000)
	return NewAdminService(nil, sessions, users, recharges, miningSvc, passwordHash, "test-session-secret")
}

func TestAdminLogin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)

	t.Run("wrong password yields no token", func(t *testing.T) {
		svc := newAdminService(new(mockUserRepo), new(mockRechargeRepo), new(mockAdminSessionRepo), string(hash))

		token, err := svc.Login(context.Background(), "wrong")
		require.NoError(t, err)
		assert.Empty(t, token)
	})

	t.Run("no password hash configured rejects everything", func(t *testing.T) {
		svc := newAdminService(new(mockUserRepo), new(mockRechargeRepo), new(mockAdminSessionRepo), "")

		token, err := svc.Login(context.Background(), "anything")
		require.NoError(t, err)
		assert.Empty(t, token)
	})

	t.Run("correct password mints a session", func(t *testing.T) {
		sessions := new(mockAdminSessionRepo)
		sessions.On("Create", mock.Anything, mock.MatchedBy(func(params model.CreateAdminSessionParams) bool {
			return params.TokenHash != "" && params.ExpiresAt.After(time.Now())
		})).Return(&model.AdminSession{ID: "sess-1"}, nil)

		svc := newAdminService(new(mockUserRepo), new(mockRechargeRepo), sessions, string(hash))

		token, err := svc.Login(context.Background(), "correct-horse")
		require.NoError(t, err)
		assert.NotEmpty(t, token)
		sessions.AssertExpectations(t)
	})
}

func TestAdminGetStats(t *testing.T) {
	users := new(mockUserRepo)
	users.On("Count", mock.Anything).Return(12, nil)
	users.On("SumPoints", mock.Anything).Return(340, nil)

	recharges := new(mockRechargeRepo)
	recharges.On("Count", mock.Anything).Return(7, nil)

	svc := newAdminService(users, recharges, new(mockAdminSessionRepo), "")

	stats, err := svc.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, stats.Users)
	assert.Equal(t, 340, stats.TotalPoints)
	assert.Equal(t, 7, stats.Recharges)
	assert.Equal(t, 0, stats.LiveSessions)
}

func TestAdminListUsers(t *testing.T) {
	users := new(mockUserRepo)
	users.On("FindAll", mock.Anything, 50, 0).Return([]model.User{{ID: "u1"}}, nil)
	users.On("Search", mock.Anything, "raj", 50, 0).Return([]model.User{{ID: "u2"}}, nil)

	svc := newAdminService(users, new(mockRechargeRepo), new(mockAdminSessionRepo), "")

	all, err := svc.ListUsers(context.Background(), "", 50, 0)
	require.NoError(t, err)
	assert.Equal(t, "u1", all[0].ID)

	found, err := svc.ListUsers(context.Background(), "raj", 50, 0)
	require.NoError(t, err)
	assert.Equal(t, "u2", found[0].ID)

	users.AssertExpectations(t)
}

func TestAdminUpdateUser(t *testing.T) {
	points := 100
	users := new(mockUserRepo)
	users.On("Update", mock.Anything, "u1", mock.MatchedBy(func(p model.UpdateUserParams) bool {
		return p.Points != nil && *p.Points == 100
	})).Return(&model.User{ID: "u1", TotalPoints: 100}, nil)

	svc := newAdminService(users, new(mockRechargeRepo), new(mockAdminSessionRepo), "")

	user, err := svc.UpdateUser(context.Background(), "u1", model.UpdateUserParams{Points: &points})
	require.NoError(t, err)
	assert.Equal(t, 100, user.TotalPoints)

	users.AssertExpectations(t)
}

func TestAdminUpdateUserNotFound(t *testing.T) {
	users := new(mockUserRepo)
	users.On("Update", mock.Anything, "ghost", mock.Anything).Return(nil, nil)

	svc := newAdminService(users, new(mockRechargeRepo), new(mockAdminSessionRepo), "")

	user, err := svc.UpdateUser(context.Background(), "ghost", model.UpdateUserParams{})
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestAdminListUserRecharges(t *testing.T) {
	recharges := new(mockRechargeRepo)
	recharges.On("FindByUserID", mock.Anything, "u1", 50, 0).Return(nil, nil)

	svc := newAdminService(new(mockUserRepo), recharges, new(mockAdminSessionRepo), "")

	records, err := svc.ListUserRecharges(context.Background(), "u1", 50, 0)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

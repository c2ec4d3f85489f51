package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rajvir-app/mining-server/internal/model"
)

func TestAccountRegister(t *testing.T) {
	clk := &fixedClock{now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.Local)}

	users := new(mockUserRepo)
	users.On("Create", mock.Anything, mock.MatchedBy(func(params model.CreateUserParams) bool {
		return params.Phone == "01012345678" &&
			params.TokenHash != "" &&
			params.Name == "User" &&
			params.Today == "2025-03-10"
	})).Return(&model.User{ID: "u1", Phone: "01012345678"}, nil)

	svc := NewAccountService(users, new(mockStore), clk)

	user, token, err := svc.Register(context.Background(), "01012345678")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Len(t, token, 64)

	users.AssertExpectations(t)
}

func TestAccountRegisterCreateError(t *testing.T) {
	users := new(mockUserRepo)
	users.On("Create", mock.Anything, mock.Anything).Return(nil, assert.AnError)

	svc := NewAccountService(users, new(mockStore), &fixedClock{now: time.Now()})

	_, _, err := svc.Register(context.Background(), "01012345678")
	require.Error(t, err)
}

func TestAccountRechargeHistory(t *testing.T) {
	store := new(mockStore)
	store.On("ListRecharges", mock.Anything, "u1", 50, 0).Return(nil, nil)

	svc := NewAccountService(new(mockUserRepo), store, &fixedClock{now: time.Now()})

	records, err := svc.RechargeHistory(context.Background(), "u1", 50, 0)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

package storagemock

import (
	"context"

	"github.com/paulthvt/solareco/pkg/storage"
	"github.com/paulthvt/solareco/pkg/types"
	"github.com/stretchr/testify/mock"
)

type MockDatabase struct {
	mock.Mock
}

var _ storage.Database = (*MockDatabase)(nil)

func (m *MockDatabase) GetSettings(ctx context.Context) (types.Settings, int, error) {
	args := m.Called(ctx)
	if len(args) > 0 {
		return args.Get(0).(types.Settings), args.Int(1), args.Error(2)
	}
	return types.Settings{}, 0, nil
}

func (m *MockDatabase) SetSettings(ctx context.Context, settings types.Settings, version int) error {
	args := m.Called(ctx, settings, version)
	return args.Error(0)
}

func (m *MockDatabase) GetRememberedUser(ctx context.Context) (types.RememberedUser, error) {
	args := m.Called(ctx)
	if len(args) > 0 {
		return args.Get(0).(types.RememberedUser), args.Error(1)
	}
	return types.RememberedUser{}, nil
}

func (m *MockDatabase) SetRememberedUser(ctx context.Context, user types.RememberedUser) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockDatabase) ClearRememberedUser(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockDatabase) Close() error {
	args := m.Called()
	return args.Error(0)
}

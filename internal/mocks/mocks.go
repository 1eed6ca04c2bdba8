// File: internal/mocks/mocks.go
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/gauntlet/api/schemas"
)

// -- Page Mocks --

// MockPage implements schemas.Page (and therefore schemas.PageDriver).
type MockPage struct {
	mock.Mock
}

func (m *MockPage) LoadPage(ctx context.Context, url string) error {
	return m.Called(ctx, url).Error(0)
}

func (m *MockPage) ProbeVisible(ctx context.Context, loc schemas.Locator) (bool, error) {
	args := m.Called(ctx, loc)
	return args.Bool(0), args.Error(1)
}

func (m *MockPage) Click(ctx context.Context, loc schemas.Locator) error {
	return m.Called(ctx, loc).Error(0)
}

func (m *MockPage) Fill(ctx context.Context, loc schemas.Locator, text string) error {
	return m.Called(ctx, loc, text).Error(0)
}

func (m *MockPage) Submit(ctx context.Context, loc schemas.Locator) error {
	return m.Called(ctx, loc).Error(0)
}

func (m *MockPage) SetChecked(ctx context.Context, loc schemas.Locator, checked bool) error {
	return m.Called(ctx, loc, checked).Error(0)
}

func (m *MockPage) SelectOptionByIndex(ctx context.Context, loc schemas.Locator, index int) error {
	return m.Called(ctx, loc, index).Error(0)
}

func (m *MockPage) PressKey(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockPage) Close(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// -- Browser Mocks --

// MockBrowserLauncher implements schemas.BrowserLauncher.
type MockBrowserLauncher struct {
	mock.Mock
}

func (m *MockBrowserLauncher) NewPage(ctx context.Context) (schemas.Page, error) {
	args := m.Called(ctx)
	if page, ok := args.Get(0).(schemas.Page); ok {
		return page, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBrowserLauncher) Shutdown(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// -- Sink Mocks --

// MockSummarySink implements schemas.SummarySink.
type MockSummarySink struct {
	mock.Mock
}

func (m *MockSummarySink) Publish(ctx context.Context, summary *schemas.RunSummary) error {
	return m.Called(ctx, summary).Error(0)
}

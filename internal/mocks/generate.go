// Package mocks provides mock implementations for testing the surveystats service.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for the core interfaces.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	store := mocks.NewMockResultStore(ctrl)
//	store.EXPECT().Read(gomock.Any(), int64(1)).Return([]byte(`{}`), nil)
package mocks

// Generate mock for ResultStore interface from internal/core package.
// This creates MockResultStore with methods: Write, Read
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=result_store_mock.go github.com/target/surveystats/internal/core ResultStore

// Generate mock for JobRegistry interface from internal/core package.
// This creates MockJobRegistry with methods: SetStatus, GetStatus, List
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=job_registry_mock.go github.com/target/surveystats/internal/core JobRegistry

// Package mocks provides mock implementations for testing the job item resolver.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for the ports in
// internal/core. The mocks are generated using go:generate directives.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	fetcher := mocks.NewMockJobItemFetcher(ctrl)
//	fetcher.EXPECT().FetchJobItem(gomock.Any(), model.JobItemID(1)).Return(envelope, nil)
package mocks

// Generate mock for JobItemFetcher interface from internal/core package.
// This creates MockJobItemFetcher with methods for all JobItemFetcher interface methods:
// FetchJobItem
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=job_item_fetcher_mock.go github.com/target/mmk-jobitems/internal/core JobItemFetcher

// Generate mock for ErrorObserver interface from internal/core package.
// This creates MockErrorObserver with methods for all ErrorObserver interface methods:
// ReportFetchError
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=error_observer_mock.go github.com/target/mmk-jobitems/internal/core ErrorObserver

// Generate mock for CacheRepository interface from internal/core package.
// This creates MockCacheRepository with methods for all CacheRepository interface methods:
// Set, Get, Delete, Health
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=cache_repository_mock.go github.com/target/mmk-jobitems/internal/core CacheRepository

// Package mocks provides gomock implementations of the triage repository and client ports.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	client := mocks.NewMockClassificationClient(ctrl)
//	client.EXPECT().Classify(gomock.Any(), gomock.Any()).Return(&core.ClassifyResult{}, nil)
package mocks

// MockClassificationClient: Classify
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=classification_client_mock.go github.com/narrativewatch/triage/internal/core ClassificationClient

// MockJobRunRepository: Create, Complete, GetByID
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=job_run_repository_mock.go github.com/narrativewatch/triage/internal/core JobRunRepository

// MockRetentionRepository: CountPosts, CountOlderThan, ListOlderThan, ArchiveByIDs, DeleteByIDs,
// ResetRollingCounters, CleanupStaleReviewQueue
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=retention_repository_mock.go github.com/narrativewatch/triage/internal/core RetentionRepository

package main

import "time"

// RepoConfig defines a single repository fixture to scan.
type RepoConfig struct {
	Name       string            `yaml:"name"`
	URL        string            `yaml:"url"`
	Type       string            `yaml:"type"` // "public", "managed", "synthetic"
	Expected   *ExpectedSnapshot `yaml:"expected,omitempty"`
	Notes      string            `yaml:"notes,omitempty"`
	Tags       []string          `yaml:"tags,omitempty"`
	Skip       bool              `yaml:"skip,omitempty"`
	SkipReason string            `yaml:"skip_reason,omitempty"`
}

// ExpectedSnapshot defines the expected shape of a scanned repository
// fixture: what a correct scan of this repo ought to find.
type ExpectedSnapshot struct {
	Trunk           string `yaml:"trunk"`
	TrackedBranches int    `yaml:"tracked_branches"`
	FrozenBranches  int    `yaml:"frozen_branches"`
	HasCycle        bool   `yaml:"has_cycle,omitempty"`
	HasDivergence   bool   `yaml:"has_divergence,omitempty"`
	HealthOutcome   string `yaml:"health_outcome"` // "ready" or "needs_repair"
}

// RepoManifest is the root configuration for a corpus run.
type RepoManifest struct {
	Version       string       `yaml:"version"`
	Description   string       `yaml:"description"`
	CacheEnabled  bool         `yaml:"cache_enabled"`
	CacheTTL      string       `yaml:"cache_ttl"` // e.g., "7d", "24h"
	MaxConcurrent int          `yaml:"max_concurrent"`
	Repos         []RepoConfig `yaml:"repos"`
}

// TestResult captures the result of scanning one repo fixture.
type TestResult struct {
	RepoName  string    `json:"repo_name"`
	RepoType  string    `json:"repo_type"`
	RepoURL   string    `json:"repo_url"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Duration  string    `json:"duration"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`

	// What the scan actually found.
	Detected *DetectedSnapshot `json:"detected,omitempty"`

	// What the manifest said it should find, if provided.
	Expected *ExpectedSnapshot `json:"expected,omitempty"`

	// Validation results
	Match         bool     `json:"match"`
	Mismatches    []string `json:"mismatches,omitempty"`
	FalsePositive bool     `json:"false_positive"`

	// Performance metrics
	ScanTimeMs  int64 `json:"scan_time_ms"`
	CloneTimeMs int64 `json:"clone_time_ms,omitempty"`

	// Additional metadata
	LocalPath  string   `json:"local_path"`
	GitVersion string   `json:"git_version,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

// DetectedSnapshot is the reduction of a scanned repository down to the
// fields a corpus fixture can assert on.
type DetectedSnapshot struct {
	Trunk           string `json:"trunk"`
	TrackedBranches int    `json:"tracked_branches"`
	FrozenBranches  int    `json:"frozen_branches"`
	HasCycle        bool   `json:"has_cycle"`
	HasDivergence   bool   `json:"has_divergence"`
	HealthOutcome   string `json:"health_outcome"`
}

// Summary provides aggregate statistics across a corpus run.
type Summary struct {
	TotalRepos         int     `json:"total_repos"`
	SuccessCount       int     `json:"success_count"`
	FailureCount       int     `json:"failure_count"`
	SkippedCount       int     `json:"skipped_count"`
	MatchCount         int     `json:"match_count"`
	MismatchCount      int     `json:"mismatch_count"`
	FalsePositiveCount int     `json:"false_positive_count"`
	FalsePositiveRate  float64 `json:"false_positive_rate"`

	// Performance stats
	AvgScanTimeMs float64 `json:"avg_scan_time_ms"`
	MaxScanTimeMs int64   `json:"max_scan_time_ms"`
	TotalDuration string  `json:"total_duration"`

	// Distribution of health outcomes across the corpus.
	HealthOutcomeCounts map[string]int `json:"health_outcome_counts"`
}

// Report is the full corpus run report.
type Report struct {
	Version     string       `json:"version"`
	GeneratedAt time.Time    `json:"generated_at"`
	GitVersion  string       `json:"git_version"`
	Summary     Summary      `json:"summary"`
	Results     []TestResult `json:"results"`
	Failures    []TestResult `json:"failures,omitempty"`
	Mismatches  []TestResult `json:"mismatches,omitempty"`
}

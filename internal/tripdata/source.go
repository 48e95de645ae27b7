// Package tripdata locates, downloads and decodes the monthly yellow-taxi
// parquet files published by the TLC.
package tripdata

import (
	"context"
	"fmt"
)

// Fetcher downloads a URL into the local data directory and returns the
// local path, reusing files already on disk.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Source resolves month partitions to local parquet files.
type Source struct {
	fetcher Fetcher
	baseURL string
}

func NewSource(fetcher Fetcher, baseURL string) *Source {
	return &Source{fetcher: fetcher, baseURL: baseURL}
}

// FileName returns the TLC file name for a month partition.
func FileName(year, month int) string {
	return fmt.Sprintf("yellow_tripdata_%04d-%02d.parquet", year, month)
}

// URL returns the download URL for a month partition.
func (s *Source) URL(year, month int) string {
	return fmt.Sprintf("%s/%s", s.baseURL, FileName(year, month))
}

// EnsureMonthFile makes sure the month's parquet file exists locally and
// returns its path.
func (s *Source) EnsureMonthFile(ctx context.Context, year, month int) (string, error) {
	path, err := s.fetcher.Fetch(ctx, s.URL(year, month))
	if err != nil {
		return "", fmt.Errorf("tripdata.EnsureMonthFile %04d-%02d: %w", year, month, err)
	}
	return path, nil
}

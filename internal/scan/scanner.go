package scan

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"kdindex/internal/models"
)

// Scanner loads point sets from files and folders
type Scanner struct {
	workers    int
	timeout    time.Duration
	stride     int
	progressFn func(scanned, total int, current string)
}

// Option configures a Scanner
type Option func(*Scanner)

// WithWorkers sets the number of parallel workers
func WithWorkers(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithTimeout sets the timeout for loading each file
func WithTimeout(d time.Duration) Option {
	return func(s *Scanner) {
		s.timeout = d
	}
}

// WithStride sets the pixel sampling stride for images
func WithStride(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.stride = n
		}
	}
}

// WithProgress sets a progress callback
func WithProgress(fn func(scanned, total int, current string)) Option {
	return func(s *Scanner) {
		s.progressFn = fn
	}
}

// NewScanner creates a new Scanner
func NewScanner(opts ...Option) *Scanner {
	s := &Scanner{
		workers: 8,
		timeout: 30 * time.Second,
		stride:  4,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadFile loads a single point file or image and records its SHA256
func (s *Scanner) LoadFile(path string) (*models.Dataset, error) {
	var (
		ds  *models.Dataset
		err error
	)
	switch {
	case IsPointFile(path):
		ds, err = LoadPointFile(path)
	case IsImageFile(path):
		ds, err = LoadImage(path, s.stride)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", path)
	}
	if err != nil {
		return nil, err
	}

	if ds.SourceHash, err = ComputeFileHash(path); err != nil {
		return nil, err
	}
	return ds, nil
}

// LoadFileWithTimeout loads a file, giving up after the scanner's timeout
func (s *Scanner) LoadFileWithTimeout(path string) (*models.Dataset, error) {
	if s.timeout <= 0 {
		return s.LoadFile(path)
	}

	done := make(chan struct{})
	var ds *models.Dataset
	var err error

	go func() {
		ds, err = s.LoadFile(path)
		close(done)
	}()

	select {
	case <-done:
		return ds, err
	case <-time.After(s.timeout):
		return nil, fmt.Errorf("timeout loading file: %s", path)
	}
}

// ScanFolder loads every supported file below folder. Files that fail to
// load are skipped. Datasets are named by their path relative to folder and
// returned sorted by name.
func (s *Scanner) ScanFolder(folder string) ([]*models.Dataset, error) {
	// First, collect all supported paths
	var paths []string
	err := filepath.Walk(folder, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if info.IsDir() {
			return nil
		}
		if IsSupportedFile(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk folder: %w", err)
	}

	if len(paths) == 0 {
		return nil, nil
	}

	// Process files in parallel
	var (
		results   []*models.Dataset
		resultsMu sync.Mutex
		wg        sync.WaitGroup
		scanned   int
		total     = len(paths)
	)

	// Create work channel
	work := make(chan string, len(paths))
	for _, p := range paths {
		work <- p
	}
	close(work)

	// Start workers
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range work {
				ds, err := s.LoadFileWithTimeout(path)
				if err == nil {
					if rel, relErr := filepath.Rel(folder, path); relErr == nil {
						ds.Name = DatasetName(rel)
					}
				}

				// Progress is reported under the lock; failed files still count
				resultsMu.Lock()
				if err == nil {
					results = append(results, ds)
				}
				scanned++
				if s.progressFn != nil {
					s.progressFn(scanned, total, path)
				}
				resultsMu.Unlock()
			}
		}()
	}

	wg.Wait()

	sort.Slice(results, func(i, j int) bool {
		return results[i].Name < results[j].Name
	})

	return results, nil
}

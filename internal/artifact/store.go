// Package artifact keeps QR PDFs in transient storage until they are shared.
package artifact

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/payment-orchestrator/constants"
	"github.com/joseph-ayodele/payment-orchestrator/internal/common"
	"github.com/joseph-ayodele/payment-orchestrator/internal/entity"
)

// Store writes artifacts below a cache directory as {requestID}.pdf.
type Store struct {
	dir    string
	logger *slog.Logger
	now    func() time.Time
}

// NewStore uses dir, falling back to ./tmp.
func NewStore(dir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	if dir == "" {
		dir = "./tmp"
	}
	return &Store{dir: dir, logger: logger, now: time.Now}
}

// Dir is the cache directory.
func (s *Store) Dir() string { return s.dir }

// SavePDF persists data for requestID, replacing an earlier copy.
func (s *Store) SavePDF(requestID string, data []byte) (entity.Artifact, error) {
	if err := validName(requestID); err != nil {
		return entity.Artifact{}, err
	}
	if len(data) == 0 {
		return entity.Artifact{}, fmt.Errorf("artifact %s: empty data: %w", requestID, common.ErrInvalidInput)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return entity.Artifact{}, fmt.Errorf("create artifact dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+requestID+"-*")
	if err != nil {
		return entity.Artifact{}, fmt.Errorf("create temp artifact: %w", err)
	}
	cleanup := func() { _ = os.Remove(tmp.Name()) }
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return entity.Artifact{}, fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return entity.Artifact{}, fmt.Errorf("close artifact: %w", err)
	}

	path := s.path(requestID)
	if err := os.Rename(tmp.Name(), path); err != nil {
		cleanup()
		return entity.Artifact{}, fmt.Errorf("persist artifact: %w", err)
	}
	a := entity.Artifact{
		RequestID:   requestID,
		Path:        path,
		Size:        int64(len(data)),
		ContentType: constants.MediaTypePDF,
		CreatedAt:   s.now().UTC(),
	}
	s.logger.Info("artifact.saved", "request_id", requestID, "path", path, "bytes", a.Size)
	return a, nil
}

// Get returns the stored artifact for requestID.
func (s *Store) Get(requestID string) (entity.Artifact, error) {
	if err := validName(requestID); err != nil {
		return entity.Artifact{}, err
	}
	path := s.path(requestID)
	st, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return entity.Artifact{}, fmt.Errorf("artifact %s: %w", requestID, common.ErrNotFound)
	}
	if err != nil {
		return entity.Artifact{}, fmt.Errorf("stat artifact: %w", err)
	}
	return entity.Artifact{
		RequestID:   requestID,
		Path:        path,
		Size:        st.Size(),
		ContentType: constants.MediaTypePDF,
		CreatedAt:   st.ModTime().UTC(),
	}, nil
}

// Cleanup removes artifacts last modified before now-olderThan and returns
// how many were removed.
func (s *Store) Cleanup(olderThan time.Duration) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read artifact dir: %w", err)
	}
	cutoff := s.now().Add(-olderThan)
	removed := 0
	var errs []error
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), constants.ArtifactPDFExt) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	s.logger.Info("artifact.cleanup", "dir", s.dir, "removed", removed, "older_than", olderThan.String())
	return removed, errors.Join(errs...)
}

func (s *Store) path(requestID string) string {
	return filepath.Join(s.dir, requestID+constants.ArtifactPDFExt)
}

func validName(requestID string) error {
	if requestID == "" || strings.ContainsAny(requestID, `/\`) || requestID == "." || requestID == ".." {
		return fmt.Errorf("artifact name %q: %w", requestID, common.ErrInvalidInput)
	}
	return nil
}

// Package incident stores reports of failed compensations as zstd-compressed
// JSON files, one per incident, for manual reconciliation.
package incident

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"shopstock/internal/core/id"
	"shopstock/internal/domain/allocation"
	"shopstock/pkg/logger"
)

const fileSuffix = ".json.zst"

// FileRecorder implements allocation.IncidentRecorder.
type FileRecorder struct {
	dir     string
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

var _ allocation.IncidentRecorder = (*FileRecorder)(nil)

// NewFileRecorder creates dir if needed.
func NewFileRecorder(dir string) (*FileRecorder, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create incident dir: %w", err)
	}
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &FileRecorder{dir: dir, encoder: encoder, decoder: decoder}, nil
}

// Record writes the incident atomically: a partially written file is never
// visible under its final name.
func (r *FileRecorder) Record(ctx context.Context, inc allocation.Incident) error {
	if inc.OccurredAt.IsZero() {
		inc.OccurredAt = time.Now().UTC()
	}
	raw, err := json.Marshal(inc)
	if err != nil {
		return fmt.Errorf("marshal incident: %w", err)
	}
	// EncodeAll is safe for concurrent use.
	compressed := r.encoder.EncodeAll(raw, make([]byte, 0, len(raw)/2))

	name := fmt.Sprintf("%s-%s-%s%s",
		inc.OccurredAt.UTC().Format("20060102T150405.000Z"), inc.Operation, id.New(), fileSuffix)
	tmp, err := os.CreateTemp(r.dir, ".incident-*")
	if err != nil {
		return fmt.Errorf("create incident file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(compressed); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write incident: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync incident: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close incident: %w", err)
	}
	path := filepath.Join(r.dir, name)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("publish incident: %w", err)
	}

	logger.Warn(ctx, "incident recorded", "path", path, "operation", inc.Operation, "keys", inc.Keys)
	return nil
}

// List returns incident file paths, oldest first.
func (r *FileRecorder) List() ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("read incident dir: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), fileSuffix) {
			paths = append(paths, filepath.Join(r.dir, e.Name()))
		}
	}
	slices.Sort(paths)
	return paths, nil
}

// Read decodes one incident file.
func (r *FileRecorder) Read(path string) (*allocation.Incident, error) {
	compressed, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read incident: %w", err)
	}
	raw, err := r.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress incident: %w", err)
	}
	var inc allocation.Incident
	if err := json.Unmarshal(raw, &inc); err != nil {
		return nil, fmt.Errorf("unmarshal incident: %w", err)
	}
	return &inc, nil
}

// Close releases the codec resources.
func (r *FileRecorder) Close() {
	_ = r.encoder.Close()
	r.decoder.Close()
}

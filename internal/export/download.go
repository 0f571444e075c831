package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// ReportFetcher retrieves a rendered document from the report service.
type ReportFetcher interface {
	DownloadReport(ctx context.Context, url string) ([]byte, string, error)
}

// SpoolDownloader fetches rendered documents and writes them into a local
// spool directory, returning the path of the stored file.
type SpoolDownloader struct {
	fetcher ReportFetcher
	dir     string
}

// NewSpoolDownloader creates a downloader that stores documents under dir.
func NewSpoolDownloader(fetcher ReportFetcher, dir string) *SpoolDownloader {
	return &SpoolDownloader{
		fetcher: fetcher,
		dir:     dir,
	}
}

// FetchAndSave downloads the document behind url and writes it to the
// spool directory. The filename comes from the report service when it
// provides one.
func (d *SpoolDownloader) FetchAndSave(ctx context.Context, url string) (string, error) {
	data, filename, err := d.fetcher.DownloadReport(ctx, url)
	if err != nil {
		return "", fmt.Errorf("failed to fetch report: %w", err)
	}

	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create spool directory %s: %w", d.dir, err)
	}

	path := filepath.Join(d.dir, safeFilename(filename))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	zap.S().Infof("Saved export to %s (%d bytes)", path, len(data))
	return path, nil
}

// safeFilename strips any path components a remote filename could smuggle
// in, falling back to a fixed name when nothing usable remains.
func safeFilename(filename string) string {
	name := filepath.Base(filepath.Clean(filename))
	if name == "" || name == "." || name == string(filepath.Separator) || name == ".." {
		return "export"
	}
	return name
}

package gtfs

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"nexttrain.transitnyc.org/internal/logging"
)

// StaticFiles are the schedule files a dataset is built from.
var StaticFiles = []string{"stops.txt", "routes.txt", "trips.txt", "stop_times.txt"}

// StaticSource locates one mode's schedule files: a local directory, an
// HTTP(S) base URL, or a zip archive (local or remote).
type StaticSource struct {
	Location string
	Headers  map[string]string
	Client   *http.Client
}

func (s StaticSource) isRemote() bool {
	return strings.HasPrefix(s.Location, "http://") || strings.HasPrefix(s.Location, "https://")
}

func (s StaticSource) isArchive() bool {
	loc := s.Location
	if i := strings.IndexAny(loc, "?#"); i >= 0 && s.isRemote() {
		loc = loc[:i]
	}
	return strings.EqualFold(path.Ext(loc), ".zip")
}

func (s StaticSource) httpClient() *http.Client {
	if s.Client != nil {
		return s.Client
	}
	return http.DefaultClient
}

// Open returns a FileSet for the source. Archives are read once up front;
// directories and base URLs are read lazily, one read per file.
func (s StaticSource) Open(ctx context.Context) (FileSet, error) {
	if s.Location == "" {
		return nil, fmt.Errorf("static source location is empty")
	}

	if s.isArchive() {
		b, err := s.read(ctx, s.Location)
		if err != nil {
			return nil, err
		}
		reader, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
		if err != nil {
			return nil, fmt.Errorf("error opening GTFS archive %s: %w", s.Location, err)
		}
		return zipFileSet{reader: reader}, nil
	}

	return locationFileSet{source: s}, nil
}

func (s StaticSource) read(ctx context.Context, location string) ([]byte, error) {
	if !strings.HasPrefix(location, "http://") && !strings.HasPrefix(location, "https://") {
		b, err := os.ReadFile(location)
		if err != nil {
			return nil, fmt.Errorf("error reading local GTFS file: %w", err)
		}
		return b, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, err
	}
	for key, value := range s.Headers {
		req.Header.Add(key, value)
	}

	resp, err := s.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("error downloading GTFS data: %w", err)
	}
	defer logging.SafeCloseWithLogging(resp.Body,
		slog.Default().With(slog.String("component", "gtfs_static_downloader")),
		"http_response_body")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("error downloading GTFS data: HTTP %d from %s", resp.StatusCode, location)
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading GTFS data: %w", err)
	}
	return b, nil
}

// FileSet hands out schedule files by name.
type FileSet interface {
	ReadFile(ctx context.Context, name string) ([]byte, error)
}

type locationFileSet struct {
	source StaticSource
}

func (fs locationFileSet) ReadFile(ctx context.Context, name string) ([]byte, error) {
	loc := fs.source.Location
	if fs.source.isRemote() {
		return fs.source.read(ctx, strings.TrimSuffix(loc, "/")+"/"+name)
	}
	return fs.source.read(ctx, filepath.Join(loc, name))
}

type zipFileSet struct {
	reader *zip.Reader
}

func (fs zipFileSet) ReadFile(_ context.Context, name string) ([]byte, error) {
	for _, f := range fs.reader.File {
		// Some agencies nest the files one directory deep.
		if path.Base(f.Name) != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("error opening %s in archive: %w", name, err)
		}
		b, err := io.ReadAll(rc)
		logging.SafeCloseWithLogging(rc,
			slog.Default().With(slog.String("component", "gtfs_static_loader")),
			"zip_entry")
		if err != nil {
			return nil, fmt.Errorf("error reading %s in archive: %w", name, err)
		}
		return b, nil
	}
	return nil, fmt.Errorf("%s not found in archive: %w", name, os.ErrNotExist)
}

package source

import (
	"context"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// RecordRef identifies one record of a source.
type RecordRef struct {
	Identifier string `json:"identifier"`
	Datestamp  string `json:"datestamp,omitempty"`
	Deleted    bool   `json:"deleted,omitempty"`
	// URL is where the record payload can be retrieved.
	URL string `json:"url,omitempty"`
}

// Source lists and fetches record payloads.
type Source interface {
	// List returns the records changed since from. A zero from lists all.
	List(ctx context.Context, from time.Time) ([]RecordRef, error)
	// Fetch returns the raw payload of one record.
	Fetch(ctx context.Context, ref RecordRef) ([]byte, error)
}

// OAISource harvests records from an OAI-PMH endpoint.
type OAISource struct {
	client *Client
}

// NewOAISource wraps an OAI-PMH client as a Source.
func NewOAISource(client *Client) *OAISource {
	return &OAISource{client: client}
}

// List implements Source.
func (s *OAISource) List(ctx context.Context, from time.Time) ([]RecordRef, error) {
	headers, err := s.client.ListIdentifiers(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("failed to list identifiers: %w", err)
	}
	refs := make([]RecordRef, 0, len(headers))
	for _, header := range headers {
		refs = append(refs, RecordRef{
			Identifier: header.Identifier,
			Datestamp:  header.Datestamp,
			Deleted:    header.Deleted,
			URL:        s.client.RecordURL(header.Identifier),
		})
	}
	return refs, nil
}

// Fetch implements Source.
func (s *OAISource) Fetch(ctx context.Context, ref RecordRef) ([]byte, error) {
	data, err := s.client.GetRecord(ctx, ref.Identifier)
	if err != nil {
		return nil, fmt.Errorf("failed to get record %s: %w", ref.Identifier, err)
	}
	return data, nil
}

// DirectorySource reads records from XML files below a directory. The
// record identifier is the file path relative to the directory.
type DirectorySource struct {
	dir string
}

// NewDirectorySource creates a source over dir.
func NewDirectorySource(dir string) *DirectorySource {
	return &DirectorySource{dir: dir}
}

// List implements Source. Files are returned in path order; from filters on
// modification time.
func (s *DirectorySource) List(ctx context.Context, from time.Time) ([]RecordRef, error) {
	var refs []RecordRef
	err := filepath.WalkDir(s.dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(path), ".xml") {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		if !from.IsZero() && info.ModTime().Before(from) {
			return nil
		}
		rel, err := filepath.Rel(s.dir, path)
		if err != nil {
			return err
		}
		refs = append(refs, RecordRef{
			Identifier: filepath.ToSlash(rel),
			Datestamp:  info.ModTime().UTC().Format(time.RFC3339),
			URL:        fileURL(path),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.dir, err)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Identifier < refs[j].Identifier })
	return refs, nil
}

// Fetch implements Source.
func (s *DirectorySource) Fetch(_ context.Context, ref RecordRef) ([]byte, error) {
	path := filepath.Join(s.dir, filepath.FromSlash(ref.Identifier))
	rel, err := filepath.Rel(s.dir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return nil, fmt.Errorf("record %q is outside %s", ref.Identifier, s.dir)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read record %s: %w", ref.Identifier, err)
	}
	return data, nil
}

func fileURL(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
}

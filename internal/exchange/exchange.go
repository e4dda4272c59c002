// Package exchange converts the address book and notebook to and from
// portable YAML or JSON documents.
package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"assistbot/internal/contacts"
	"assistbot/internal/logging"
	"assistbot/internal/notes"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// CurrentVersion is the document format version written by Export.
const CurrentVersion = 1

// Format names.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// readConcurrency bounds how many files ReadFiles decodes at once.
const readConcurrency = 4

var (
	ErrUnknownFormat      = errors.New("unknown export format")
	ErrUnsupportedVersion = errors.New("unsupported document version")
)

// Document is a full export of the assistant's data.
type Document struct {
	Version    int          `yaml:"version" json:"version"`
	ExportedAt time.Time    `yaml:"exported_at" json:"exported_at"`
	Contacts   []ContactDoc `yaml:"contacts" json:"contacts"`
	Notes      []NoteDoc    `yaml:"notes" json:"notes"`
}

// ContactDoc is one contact in a Document.
type ContactDoc struct {
	ID       string   `yaml:"id,omitempty" json:"id,omitempty"`
	Name     string   `yaml:"name" json:"name"`
	Phones   []string `yaml:"phones,omitempty" json:"phones,omitempty"`
	Emails   []string `yaml:"emails,omitempty" json:"emails,omitempty"`
	Birthday string   `yaml:"birthday,omitempty" json:"birthday,omitempty"` // DD.MM.YYYY
	Address  string   `yaml:"address,omitempty" json:"address,omitempty"`
}

// NoteDoc is one note in a Document.
type NoteDoc struct {
	ID        string    `yaml:"id,omitempty" json:"id,omitempty"`
	Text      string    `yaml:"text" json:"text"`
	Tags      []string  `yaml:"tags,omitempty" json:"tags,omitempty"`
	CreatedAt time.Time `yaml:"created_at" json:"created_at"`
}

// Export builds a Document from book and nb.
func Export(book *contacts.AddressBook, nb *notes.Notebook, now time.Time) *Document {
	doc := &Document{
		Version:    CurrentVersion,
		ExportedAt: now.UTC(),
		Contacts:   make([]ContactDoc, 0, book.Len()),
		Notes:      make([]NoteDoc, 0, nb.Len()),
	}
	for _, r := range book.Records() {
		c := ContactDoc{ID: r.ID, Name: r.Name, Address: r.Address}
		for _, p := range r.Phones {
			c.Phones = append(c.Phones, string(p))
		}
		for _, e := range r.Emails {
			c.Emails = append(c.Emails, string(e))
		}
		if r.Birthday != nil {
			c.Birthday = r.Birthday.String()
		}
		doc.Contacts = append(doc.Contacts, c)
	}
	for _, n := range nb.Notes() {
		doc.Notes = append(doc.Notes, NoteDoc{
			ID:        n.ID,
			Text:      n.Text,
			Tags:      append([]string(nil), n.Tags...),
			CreatedAt: n.CreatedAt.UTC(),
		})
	}
	return doc
}

// FormatFromPath picks a format from a file extension.
func FormatFromPath(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
}

// Encode writes doc to w in the given format.
func Encode(w io.Writer, doc *Document, format string) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// Decode reads one document in the given format.
func Decode(r io.Reader, format string) (*Document, error) {
	var doc Document
	switch format {
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse yaml: %w", err)
		}
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to parse json: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if doc.Version > CurrentVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, doc.Version)
	}
	return &doc, nil
}

// ReadFiles decodes several export files concurrently. Results are in the
// order of paths. The first failure cancels the remaining reads.
func ReadFiles(ctx context.Context, paths []string) ([]*Document, error) {
	timer := logging.StartTimer(logging.CategoryExchange, "ReadFiles")
	defer timer.Stop()

	docs := make([]*Document, len(paths))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(readConcurrency)

	for i, path := range paths {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			doc, err := readFile(path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			logging.Get(logging.CategoryExchange).With("file", path).
				Info("decoded %d contacts, %d notes (version %d)", len(doc.Contacts), len(doc.Notes), doc.Version)
			docs[i] = doc
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}

func readFile(path string) (*Document, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f, format)
}

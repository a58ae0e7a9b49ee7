// Package dataset reads news article splits from local files or remote URLs.
package dataset

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"newsmask/internal/config"
	"newsmask/internal/logger"
	"newsmask/internal/models"
)

var (
	// ErrUnsupportedFormat is returned for a split format the loader cannot decode.
	ErrUnsupportedFormat = errors.New("unsupported split format")
	// ErrNoHTMLFiles is returned when an html split directory holds no pages.
	ErrNoHTMLFiles = errors.New("no html files found")
)

// idNamespace scopes derived record ids.
var idNamespace = uuid.MustParse("6f1c3a52-8e0b-4d7e-9a51-2b7c0f4e6d13")

// Loader turns split configs into records.
type Loader struct {
	fetcher      *Fetcher
	log          *logger.Logger
	normalize    string
	bufferSizeKb int
}

// NewLoader creates a loader from the pipeline config.
func NewLoader(cfg *config.Config, log *logger.Logger) *Loader {
	if log == nil {
		log = logger.Discard()
	}

	return &Loader{
		fetcher:      NewFetcher(cfg.Retry, cfg.Advanced.BufferSizeKb),
		log:          log,
		normalize:    strings.ToLower(cfg.Dataset.Normalize),
		bufferSizeKb: cfg.Advanced.BufferSizeKb,
	}
}

// Load reads every source of a split in order. Records without an id get one
// derived from the split name, position and article text.
func (l *Loader) Load(ctx context.Context, split config.SplitConfig) (models.Split, error) {
	var records []models.Record

	var err error

	if split.IsRemote() {
		records, err = l.loadRemote(ctx, split)
	} else {
		records, err = l.loadLocal(split)
	}

	if err != nil {
		return models.Split{}, fmt.Errorf("load split %s: %w", split.Name, err)
	}

	for i := range records {
		records[i].Article = l.normalizeText(records[i].Article)

		if records[i].ID == "" {
			records[i].ID = deriveID(split.Name, i, records[i].Article)
		}
	}

	l.log.Debug("Split loaded", "split", split.Name, "records", len(records), "remote", split.IsRemote())

	return models.Split{Name: split.Name, Records: records}, nil
}

func (l *Loader) loadLocal(split config.SplitConfig) ([]models.Record, error) {
	if split.Format == "html" {
		return l.loadLocalHTML(split.Path)
	}

	content, err := l.fetcher.ReadLocalFile(split.Path)
	if err != nil {
		return nil, err
	}

	return l.decode(split.Format, content, split.Path)
}

func (l *Loader) loadLocalHTML(path string) ([]models.Record, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	files := []string{path}

	if info.IsDir() {
		files = nil

		err = filepath.WalkDir(path, func(p string, d os.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}

			ext := strings.ToLower(filepath.Ext(p))
			if !d.IsDir() && (ext == ".html" || ext == ".htm") {
				files = append(files, p)
			}

			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", path, err)
		}

		if len(files) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrNoHTMLFiles, path)
		}

		slices.Sort(files)
	}

	records := make([]models.Record, 0, len(files))

	for _, file := range files {
		content, err := l.fetcher.ReadLocalFile(file)
		if err != nil {
			return nil, err
		}

		rec, err := htmlRecord(content, file)
		if err != nil {
			return nil, err
		}

		records = append(records, rec)
	}

	return records, nil
}

func (l *Loader) loadRemote(ctx context.Context, split config.SplitConfig) ([]models.Record, error) {
	var records []models.Record

	for _, url := range split.URLs {
		body, status, duration, err := l.fetcher.FetchWithMetrics(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", url, err)
		}

		l.log.Debug("Fetched source", "url", url, "status", status, "duration", duration, "bytes", len(body))

		batch, err := l.decode(split.Format, body, url)
		if err != nil {
			return nil, err
		}

		records = append(records, batch...)
	}

	return records, nil
}

func (l *Loader) decode(format string, content []byte, source string) ([]models.Record, error) {
	switch format {
	case "json":
		var records []models.Record
		if err := json.Unmarshal(content, &records); err != nil {
			return nil, fmt.Errorf("failed to parse JSON %s: %w", source, err)
		}

		return records, nil
	case "jsonl":
		return l.decodeLines(content, source)
	case "html":
		rec, err := htmlRecord(content, source)
		if err != nil {
			return nil, err
		}

		return []models.Record{rec}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

func (l *Loader) decodeLines(content []byte, source string) ([]models.Record, error) {
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), max(l.bufferSizeKb, 64)*1024)

	var records []models.Record

	line := 0
	for scanner.Scan() {
		line++

		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}

		var rec models.Record
		if err := json.Unmarshal(text, &rec); err != nil {
			return nil, fmt.Errorf("failed to parse %s line %d: %w", source, line, err)
		}

		records = append(records, rec)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", source, err)
	}

	return records, nil
}

func htmlRecord(content []byte, source string) (models.Record, error) {
	title, text, err := ExtractArticle(bytes.NewReader(content))
	if err != nil {
		return models.Record{}, fmt.Errorf("%s: %w", source, err)
	}

	return models.Record{
		Article:    text,
		HasArticle: true,
		Fields: map[string]any{
			"title": title,
			"url":   source,
		},
	}, nil
}

func (l *Loader) normalizeText(s string) string {
	switch l.normalize {
	case "nfc":
		return norm.NFC.String(s)
	case "nfkc":
		return norm.NFKC.String(s)
	default:
		return s
	}
}

func deriveID(split string, index int, article string) string {
	return uuid.NewSHA1(idNamespace, []byte(split+"\x00"+strconv.Itoa(index)+"\x00"+article)).String()
}

package cache

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Column names of the persisted listing table.
const (
	colName     = "name"
	colPrice    = "price"
	colImageURL = "image_url"
	colShopURL  = "shop_url"
	colItemID   = "item_id"
	colEndTime  = "end_time"
)

// csvHeader is the column order written by CSVRepository.
//
//nolint:gochecknoglobals // Fixed column layout.
var csvHeader = []string{colName, colPrice, colImageURL, colShopURL, colItemID, colEndTime}

// CSVRepository persists listings as a CSV table with a header row.
type CSVRepository struct {
	path string
}

// NewCSVRepository creates a repository backed by the file at path.
func NewCSVRepository(path string) (*CSVRepository, error) {
	if path == "" {
		return nil, errors.New("listing store path cannot be empty")
	}
	return &CSVRepository{path: path}, nil
}

// Path returns the backing file path.
func (r *CSVRepository) Path() string {
	return r.path
}

// Load reads every row of the table. A missing file is ErrStoreNotFound;
// a malformed file is ErrStoreCorrupted.
func (r *CSVRepository) Load(_ context.Context) ([]Listing, error) {
	f, err := os.Open(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrStoreNotFound, r.path)
		}
		return nil, fmt.Errorf("opening listing store: %w", err)
	}
	defer f.Close()

	return decodeCSV(f)
}

// Save writes all listings atomically via a temp file and rename.
func (r *CSVRepository) Save(_ context.Context, listings []Listing) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o750); err != nil {
		return fmt.Errorf("creating listing store directory: %w", err)
	}

	tmpPath := r.path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("creating listing store temp file: %w", err)
	}

	if encErr := encodeCSV(f, listings); encErr != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return encErr
	}
	if closeErr := f.Close(); closeErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("closing listing store temp file: %w", closeErr)
	}

	if renameErr := os.Rename(tmpPath, r.path); renameErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("renaming listing store temp file: %w", renameErr)
	}
	return nil
}

func encodeCSV(w io.Writer, listings []Listing) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing listing store header: %w", err)
	}
	for _, l := range listings {
		record := []string{
			l.Name,
			strconv.FormatFloat(l.Price, 'f', -1, 64),
			l.ImageURL,
			l.ShopURL,
			l.ID,
			l.Expiry.UTC().Format(EndTimeLayout),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing listing %s: %w", l.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing listing store: %w", err)
	}
	return nil
}

func decodeCSV(rd io.Reader) ([]Listing, error) {
	cr := csv.NewReader(rd)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: missing header", ErrStoreCorrupted)
		}
		return nil, fmt.Errorf("%w: %w", ErrStoreCorrupted, err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}
	for _, name := range csvHeader {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrStoreCorrupted, name)
		}
	}

	var listings []Listing
	for {
		record, readErr := cr.Read()
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrStoreCorrupted, readErr)
		}

		line, _ := cr.FieldPos(0)
		l, parseErr := parseRecord(record, index)
		if parseErr != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrStoreCorrupted, line, parseErr)
		}
		listings = append(listings, l)
	}
	return listings, nil
}

func parseRecord(record []string, index map[string]int) (Listing, error) {
	if len(record) != len(index) {
		return Listing{}, fmt.Errorf("expected %d fields, got %d", len(index), len(record))
	}

	price, err := strconv.ParseFloat(record[index[colPrice]], 64)
	if err != nil {
		return Listing{}, fmt.Errorf("invalid price: %w", err)
	}
	end, err := time.ParseInLocation(EndTimeLayout, record[index[colEndTime]], time.UTC)
	if err != nil {
		return Listing{}, fmt.Errorf("invalid end_time: %w", err)
	}

	return NewListing(
		record[index[colItemID]],
		record[index[colName]],
		price,
		record[index[colImageURL]],
		record[index[colShopURL]],
		end,
	), nil
}

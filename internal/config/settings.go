package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SettingsDateLayout is the layout of the last-filled date in the settings file.
const SettingsDateLayout = "2006-01-02"

// settingsTimestampLayout is also accepted on load; older files stored a full timestamp.
const settingsTimestampLayout = "2006-01-02 15:04:05"

// Settings errors.
var (
	// ErrSettingsNotFound indicates the settings file does not exist.
	ErrSettingsNotFound = errors.New("settings file not found")
	// ErrSettingsCorrupted indicates the settings file exists but cannot be parsed.
	ErrSettingsCorrupted = errors.New("settings file corrupted")
)

// Settings is the small record persisted across runs. The file holds a single
// comma-joined line whose first field is the last bulk-fill date. Any further
// fields are carried through unchanged.
type Settings struct {
	// LastFilled is the date of the last bulk fill (midnight UTC).
	LastFilled time.Time

	// Extra holds unrecognized trailing fields.
	Extra []string

	path string
}

// LoadSettings reads the settings file at path.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSettingsNotFound, path)
		}
		return nil, fmt.Errorf("reading settings file: %w", err)
	}

	fields := strings.Split(strings.TrimSpace(string(data)), ",")
	filled, err := parseFillDate(fields[0])
	if err != nil {
		return nil, fmt.Errorf("%w: last filled date: %w", ErrSettingsCorrupted, err)
	}

	return &Settings{
		LastFilled: filled,
		Extra:      fields[1:],
		path:       path,
	}, nil
}

// parseFillDate accepts a bare date or a full timestamp, keeping only the date.
func parseFillDate(field string) (time.Time, error) {
	field = strings.TrimSpace(field)
	t, err := time.Parse(SettingsDateLayout, field)
	if err == nil {
		return t, nil
	}
	if ts, tsErr := time.Parse(settingsTimestampLayout, field); tsErr == nil {
		y, m, d := ts.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, err
}

// InitSettings creates a settings file at path with lastFilled as the fill date.
func InitSettings(path string, lastFilled time.Time) (*Settings, error) {
	s := &Settings{LastFilled: lastFilled, path: path}
	if err := s.Save(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the settings file path.
func (s *Settings) Path() string {
	return s.path
}

// FillDue reports whether the last fill happened on a calendar day before now.
func (s *Settings) FillDue(now time.Time) bool {
	y, m, d := now.UTC().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return s.LastFilled.Before(today)
}

// MarkFilled records now as the last fill date.
func (s *Settings) MarkFilled(now time.Time) {
	y, m, d := now.UTC().Date()
	s.LastFilled = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Save writes the settings atomically via a temp file.
func (s *Settings) Save() error {
	if s.path == "" {
		return errors.New("settings path cannot be empty")
	}

	fields := append([]string{s.LastFilled.Format(SettingsDateLayout)}, s.Extra...)
	data := []byte(strings.Join(fields, ","))

	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("creating settings directory: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("writing settings temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("renaming settings temp file: %w", err)
	}
	return nil
}

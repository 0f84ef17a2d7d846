package migrate

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	versionLayout = "20060102150405"
	upMarker      = "-- +goose Up"
	downMarker    = "-- +goose Down"
)

var (
	migrationName = regexp.MustCompile(`^(\d{14})_([a-z0-9_]+)\.sql$`)
	unsafeName    = regexp.MustCompile(`[^a-z0-9]+`)
)

type migrationFile struct {
	Version int64
	Name    string
	File    string
}

// ValidateDir checks the migrations on disk.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	_, err := scan(os.DirFS(dir))
	return err
}

// ValidateEmbedded checks the migrations compiled into the binary.
func ValidateEmbedded() error {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		return fmt.Errorf("open embedded migrations: %w", err)
	}
	_, err = scan(sub)
	return err
}

// scan returns the migrations in fsys ordered by version. Every file must be
// named <YYYYMMDDHHMMSS>_<name>.sql, carry both goose sections and own a
// unique version.
func scan(fsys fs.FS) ([]migrationFile, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	files := make([]migrationFile, 0, len(entries))
	owners := map[int64]string{}
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".sql" {
			continue
		}
		m := migrationName.FindStringSubmatch(e.Name())
		if m == nil {
			return nil, fmt.Errorf("invalid migration filename %q (want YYYYMMDDHHMMSS_name.sql)", e.Name())
		}
		version, _ := strconv.ParseInt(m[1], 10, 64)
		if prev, ok := owners[version]; ok {
			return nil, fmt.Errorf("migration version %d used by %q and %q", version, prev, e.Name())
		}
		owners[version] = e.Name()

		body, err := fs.ReadFile(fsys, e.Name())
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", e.Name(), err)
		}
		for _, marker := range []string{upMarker, downMarker} {
			if !strings.Contains(string(body), marker) {
				return nil, fmt.Errorf("migration %q missing %q", e.Name(), marker)
			}
		}
		files = append(files, migrationFile{Version: version, Name: m[2], File: e.Name()})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Version < files[j].Version })
	return files, nil
}

// CreateSQLMigration writes an empty goose migration into dir and returns its
// path. The version is the current UTC time, bumped past the newest existing
// migration so files created on a skewed clock still sort last.
func CreateSQLMigration(dir, name string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("dir is required")
	}
	slug := strings.Trim(unsafeName.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if slug == "" {
		return "", fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %q: %w", dir, err)
	}

	existing, err := scan(os.DirFS(dir))
	if err != nil {
		return "", err
	}
	version := time.Now().UTC()
	if n := len(existing); n > 0 {
		newest, err := time.Parse(versionLayout, strconv.FormatInt(existing[n-1].Version, 10))
		if err == nil && !version.After(newest) {
			version = newest.Add(time.Second)
		}
	}

	full := filepath.Join(dir, fmt.Sprintf("%s_%s.sql", version.Format(versionLayout), slug))
	body := fmt.Sprintf("%s\n-- +goose StatementBegin\n-- %s\n-- +goose StatementEnd\n\n%s\n-- +goose StatementBegin\n-- revert %s\n-- +goose StatementEnd\n",
		upMarker, slug, downMarker, slug)
	if err := os.WriteFile(full, []byte(body), 0o644); err != nil {
		return "", fmt.Errorf("write migration %q: %w", full, err)
	}
	return full, nil
}

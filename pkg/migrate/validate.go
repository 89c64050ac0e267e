package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)
)

// ValidateDir validates migration filenames and goose markers.
func ValidateDir(dir string) error {
	_, err := scanDir(dir)
	return err
}

// ValidateContract validates the directory and requires a migration file for the contract's
// minimum version.
func ValidateContract(dir string, contract Contract) error {
	versions, err := scanDir(dir)
	if err != nil {
		return err
	}
	if contract.MinVersion == 0 {
		return nil
	}
	if len(versions) == 0 {
		return fmt.Errorf("no migrations found in %q for schema version %d", dir, contract.MinVersion)
	}
	found := false
	for _, v := range versions {
		if v == contract.MinVersion {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("schema contract version %d has no migration in %q", contract.MinVersion, dir)
	}
	return nil
}

// scanDir returns the sorted migration versions of dir.
func scanDir(dir string) ([]int64, error) {
	if dir == "" {
		return nil, fmt.Errorf("dir is required")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %q: %w", dir, err)
	}

	seen := map[int64]string{}
	versions := make([]int64, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		name := e.Name()

		m := sqlFileRe.FindStringSubmatch(name)
		if m == nil {
			return nil, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
		}
		version, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse version of %q: %w", name, err)
		}
		if prev, ok := seen[version]; ok {
			return nil, fmt.Errorf("duplicate migration version %d in %q and %q", version, prev, name)
		}
		seen[version] = name

		if err := checkMarkers(filepath.Join(dir, name)); err != nil {
			return nil, err
		}
		versions = append(versions, version)
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i] < versions[j] })
	return versions, nil
}

func checkMarkers(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file %q: %w", path, err)
	}
	txt := string(b)
	name := filepath.Base(path)
	if !strings.Contains(txt, "-- +goose Up") {
		return fmt.Errorf("migration %q missing \"-- +goose Up\"", name)
	}
	if !strings.Contains(txt, "-- +goose Down") {
		return fmt.Errorf("migration %q missing \"-- +goose Down\"", name)
	}
	return nil
}

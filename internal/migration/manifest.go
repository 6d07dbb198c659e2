package migration

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"

	ratingdomain "github.com/railzwaylabs/ratebook/internal/rating/domain"
	"github.com/railzwaylabs/ratebook/internal/resolver"
)

// Manifest describes what a ratebook binary expects of the database it
// rates against. The migrator records it and the schema gate compares it.
type Manifest struct {
	SchemaVersion uint
	Checksum      string
	EngineVersion string
	ResolverSet   string
}

// SchemaVersionString is the form stored in the bootstrap state row.
func (m Manifest) SchemaVersionString() string {
	return strconv.FormatUint(uint64(m.SchemaVersion), 10)
}

// BuildManifest reads the embedded migrations and stamps them with the
// running engine version and resolver set.
func BuildManifest(products []resolver.Registration) (Manifest, error) {
	version, checksum, err := embeddedSchema()
	if err != nil {
		return Manifest{}, err
	}
	return Manifest{
		SchemaVersion: version,
		Checksum:      checksum,
		EngineVersion: ratingdomain.EngineVersion,
		ResolverSet:   ResolverFingerprint(products),
	}, nil
}

// ResolverFingerprint renders registrations as "code=identifier" pairs
// sorted by product type, e.g. "auto=auto.per_vehicle.v1,home=...".
func ResolverFingerprint(products []resolver.Registration) string {
	pairs := make([]string, 0, len(products))
	for _, p := range products {
		pairs = append(pairs, string(p.ProductType)+"="+p.ResolverIdentifier)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}

// embeddedSchema walks the migration files once. It returns the highest up
// version and a checksum over every up script, and rejects an up script
// shipped without its down counterpart.
func embeddedSchema() (uint, string, error) {
	entries, err := fs.ReadDir(embeddedMigrations, migrationsDir)
	if err != nil {
		return 0, "", fmt.Errorf("list migrations: %w", err)
	}

	ups := make(map[string]uint)
	downs := make(map[uint]bool)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		version, ok := parseMigrationVersion(name)
		if !ok {
			return 0, "", fmt.Errorf("invalid migration filename: %s", name)
		}
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[name] = version
		case strings.HasSuffix(name, ".down.sql"):
			downs[version] = true
		}
	}
	if len(ups) == 0 {
		return 0, "", errors.New("no embedded migrations found")
	}

	names := make([]string, 0, len(ups))
	var latest uint
	for name, version := range ups {
		if !downs[version] {
			return 0, "", fmt.Errorf("migration %s has no down script", name)
		}
		if version > latest {
			latest = version
		}
		names = append(names, name)
	}
	sort.Strings(names)

	hasher := sha256.New()
	for _, name := range names {
		content, err := embeddedMigrations.ReadFile(migrationsDir + "/" + name)
		if err != nil {
			return 0, "", fmt.Errorf("read migration %s: %w", name, err)
		}
		_, _ = hasher.Write([]byte(name))
		_, _ = hasher.Write([]byte{0})
		_, _ = hasher.Write(content)
		_, _ = hasher.Write([]byte{0})
	}
	return latest, hex.EncodeToString(hasher.Sum(nil)), nil
}

func parseMigrationVersion(name string) (uint, bool) {
	prefix, _, found := strings.Cut(name, "_")
	if !found || prefix == "" {
		return 0, false
	}
	parsed, err := strconv.ParseUint(prefix, 10, 64)
	if err != nil || parsed == 0 {
		return 0, false
	}
	return uint(parsed), true
}

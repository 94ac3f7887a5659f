package client

import (
	"context"
	"fmt"
	"regexp"

	"github.com/hashicorp/go-version"
	"github.com/satishbabariya/sqlbuilder/query"
)

// MinServerVersion is the oldest MySQL release the generated SQL targets
const MinServerVersion = "5.7.0"

var leadingVersion = regexp.MustCompile(`^\d+(\.\d+){0,2}`)

// ParseServerVersion parses strings such as "8.0.36-0ubuntu0.22.04.1" or
// "10.11.6-MariaDB-log", keeping the numeric release
func ParseServerVersion(s string) (*version.Version, error) {
	m := leadingVersion.FindString(s)
	if m == "" {
		return nil, fmt.Errorf("unrecognized server version %q", s)
	}
	return version.NewVersion(m)
}

// CheckServerVersion returns an error when v is older than MinServerVersion
func CheckServerVersion(v *version.Version) error {
	minimum := version.Must(version.NewVersion(MinServerVersion))
	if v.LessThan(minimum) {
		return fmt.Errorf("server version %s is older than the supported minimum %s", v, minimum)
	}
	return nil
}

// ServerVersion queries and parses the server version
func (d *DB) ServerVersion(ctx context.Context) (*version.Version, error) {
	row, err := d.exec.QueryRow(ctx, &query.Query{Kind: query.KindRaw, SQL: "SELECT VERSION() AS version"})
	if err != nil {
		return nil, err
	}
	raw, ok := row["version"]
	if !ok {
		return nil, fmt.Errorf("server did not report a version")
	}
	return ParseServerVersion(fmt.Sprint(raw))
}

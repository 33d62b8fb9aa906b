// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package store

import (
	"strings"

	"github.com/go-core-stack/tokenpool/errors"
)

// DialectFromURL chooses the production or development/test dialect based
// on the connection string's scheme, the way db/mongo.go's MongoConfig
// derives a URI from host/port/uri fields.
func DialectFromURL(rawURL string) (Dialect, error) {
	switch {
	case strings.HasPrefix(rawURL, "postgres://"), strings.HasPrefix(rawURL, "postgresql://"):
		return DialectPostgres, nil
	case strings.HasPrefix(rawURL, "sqlite://"), strings.HasPrefix(rawURL, "file:"), rawURL == ":memory:":
		return DialectSQLite, nil
	case rawURL == "":
		return 0, errors.Wrap(errors.InvalidArgument, "DATABASE_URL must be set")
	default:
		return 0, errors.Wrapf(errors.InvalidArgument, "unrecognized database URL scheme in %q", rawURL)
	}
}

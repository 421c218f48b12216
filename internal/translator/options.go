package translator

import "github.com/leapstack-labs/tablequery/pkg/core"

// Options controls a single compile.
type Options struct {
	// SqlContext selects query or build mode. Empty means query.
	SqlContext core.SqlContext
	// UserID is bound wherever CURRENT_USER() appears in a predicate.
	UserID int64
	// MaxBytesPerPage, when set, overrides LIMIT/OFFSET with a page size
	// derived from the maximum row size.
	MaxBytesPerPage *int64
	// IncludeEntityEtag appends ROW_ETAG to non-aggregated view queries.
	IncludeEntityEtag bool
}

func (o Options) withDefaults() Options {
	if o.SqlContext == "" {
		o.SqlContext = core.SqlContextQuery
	}
	return o
}

func (o Options) isBuild() bool {
	return o.SqlContext == core.SqlContextBuild
}

package core

import (
	"fmt"
	"strconv"
	"strings"
)

// IdAndVersion identifies a virtual table snapshot. Version zero means the
// current (unversioned) snapshot.
//
//nolint:revive // IdAndVersion matches the term used across the catalog
type IdAndVersion struct {
	ID      int64
	Version int64
}

// NewID returns an unversioned IdAndVersion.
func NewID(id int64) IdAndVersion {
	return IdAndVersion{ID: id}
}

// NewIDWithVersion returns a versioned IdAndVersion.
func NewIDWithVersion(id, version int64) IdAndVersion {
	return IdAndVersion{ID: id, Version: version}
}

// ParseIdAndVersion parses "syn123", "t123", "123" with an optional ".4" version.
//
//nolint:revive // see IdAndVersion
func ParseIdAndVersion(s string) (IdAndVersion, error) {
	raw := strings.TrimSpace(s)
	lower := strings.ToLower(raw)
	switch {
	case strings.HasPrefix(lower, "syn"):
		lower = lower[3:]
	case strings.HasPrefix(lower, "t"):
		lower = lower[1:]
	}

	idPart, versionPart, hasVersion := strings.Cut(lower, ".")
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id < 0 {
		return IdAndVersion{}, fmt.Errorf("invalid table id %q", s)
	}
	if !hasVersion {
		return NewID(id), nil
	}
	version, err := strconv.ParseInt(versionPart, 10, 64)
	if err != nil || version <= 0 {
		return IdAndVersion{}, fmt.Errorf("invalid table version in %q", s)
	}
	return NewIDWithVersion(id, version), nil
}

// MustParseIdAndVersion is like ParseIdAndVersion but panics on error.
// Intended for tests and constants.
//
//nolint:revive // see IdAndVersion
func MustParseIdAndVersion(s string) IdAndVersion {
	id, err := ParseIdAndVersion(s)
	if err != nil {
		panic(err)
	}
	return id
}

// HasVersion returns true when a specific version is referenced.
func (i IdAndVersion) HasVersion() bool {
	return i.Version > 0
}

// String renders the user-facing form, e.g. syn123 or syn123.4.
func (i IdAndVersion) String() string {
	if i.HasVersion() {
		return fmt.Sprintf("syn%d.%d", i.ID, i.Version)
	}
	return fmt.Sprintf("syn%d", i.ID)
}

// PhysicalTableName returns the index table name, e.g. T123 or T123_4.
func (i IdAndVersion) PhysicalTableName() string {
	if i.HasVersion() {
		return fmt.Sprintf("T%d_%d", i.ID, i.Version)
	}
	return fmt.Sprintf("T%d", i.ID)
}

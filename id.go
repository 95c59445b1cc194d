package unlocker

import "github.com/xraph/unlocker/id"

// ID is the identifier type for Unlocker event and trace records.
type ID = id.ID

// Prefix identifies the record type encoded in a TypeID.
type Prefix = id.Prefix

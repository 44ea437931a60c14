// Package index provides secondary-key lookups on top of a greendonut
// loader: given a SecondaryKey, resolve the PrimaryKeys that share it, then
// load those primary keys through the usual coalescing/caching path.
//
// FunctionsIndex adapts plain functions into the greendonut.Index
// interface. NewSecondaryIndexLoader composes an Index with a
// *greendonut.LoaderCore to answer secondary-key queries without
// bypassing the primary loader's coalescing.
package index

// Package fetchadapter adapts common data-access shapes — a single-key
// getter, a map-keyed batch getter — into the greendonut.FetchFunc a
// LoaderCore is constructed with.
package fetchadapter

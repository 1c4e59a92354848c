// Package validate checks entity names, field names and domain filters
// before any upstream call is made.
//
// Metadata needed for validation (entity lists, field definitions) is
// fetched through the gateway and cached; concurrent fetches for the
// same metadata collapse into a single upstream call.
package validate

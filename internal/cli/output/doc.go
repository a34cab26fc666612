// Package output renders command results as a table, JSON or YAML.
//
// Table mode understands three shapes: a slice of records (structs or
// JSON objects) becomes one row per record, a single struct or map
// becomes a FIELD/VALUE listing, and a prebuilt *Table is rendered as is.
// Anything else falls back to indented JSON. Wide mode adds columns
// tagged `table:"wide"` and nested values that are hidden by default.
package output

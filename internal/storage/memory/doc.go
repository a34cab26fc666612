// Package memory provides a process-local token store.
package memory

// Package cmap provides a concurrent map with string keys, sharded by the
// murmur3 hash of the key.
//
// Every operation locks exactly one shard, except the whole-map ones
// (Range, Keys, Count, Drain) which visit shards one at a time and so do
// not observe a single consistent snapshot.
package cmap

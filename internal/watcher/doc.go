// Package watcher invalidates the corpus cache when shard files change on
// disk, so a data refresh does not need a restart.
package watcher

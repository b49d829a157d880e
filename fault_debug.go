//go:build psocache_debug

package psocache

const debugFaults = true

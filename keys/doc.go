// Package keys contains implementations of the batch.KeyGenerator interface.
//
// - Sequence: a counter that keeps counting across reloads
// - Increment: the key of the last loaded batch plus one
// - UUID: a random UUID per batch
//
// Every key generator here is safe for concurrent use.
package keys

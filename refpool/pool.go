/*
DESCRIPTION
  pool.go implements a bounded pool of reconstructed-picture textures,
  split into free and in-use sets, reused across a coded video sequence
  instead of allocating a fresh texture per frame.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package refpool manages the fixed set of reconstructed-picture textures
// a hardware encoder cycles through as reference frames age out of the
// decoded picture buffer.
package refpool

import (
	"fmt"

	"github.com/ausocean/hwenc/gpu"
)

// Allocator creates the reconstructed-picture textures a Pool hands out.
// hwenc satisfies it with an adapter that calls gpu.Device.NewTexture with
// its usage fixed to reference use.
type Allocator interface {
	NewTexture(width, height int) (gpu.Texture, error)
}

// Pool holds up to capacity+1 reconstructed-picture textures (one extra
// slot accommodates the picture currently being reconstructed alongside
// the full reference set), recycling released ones instead of
// reallocating.
type Pool struct {
	alloc    Allocator
	width    int
	height   int
	capacity int

	free []gpu.Texture
	used map[gpu.Texture]bool
}

// New returns a Pool for textures of the given dimensions. It allocates
// capacity textures up front; Acquire may allocate one more, lazily, up
// to capacity+1 total.
func New(alloc Allocator, width, height, capacity int) (*Pool, error) {
	p := &Pool{
		alloc:    alloc,
		width:    width,
		height:   height,
		capacity: capacity,
		used:     make(map[gpu.Texture]bool, capacity+1),
	}
	for i := 0; i < capacity; i++ {
		t, err := alloc.NewTexture(width, height)
		if err != nil {
			return nil, err
		}
		p.free = append(p.free, t)
	}
	return p, nil
}

// Acquire returns a texture from the free set, allocating a new one if the
// free set is empty and the pool has not yet reached capacity+1. It errors
// once capacity+1 textures are simultaneously in use: callers must release
// one before acquiring another.
func (p *Pool) Acquire() (gpu.Texture, error) {
	if len(p.free) > 0 {
		t := p.free[0]
		p.free = p.free[1:]
		p.used[t] = true
		return t, nil
	}
	if len(p.used) >= p.capacity+1 {
		return nil, fmt.Errorf("refpool: pool exhausted: %d textures already in use", len(p.used))
	}
	t, err := p.alloc.NewTexture(p.width, p.height)
	if err != nil {
		return nil, err
	}
	p.used[t] = true
	return t, nil
}

// Release returns t to the free set. It is a no-op if t is not currently
// marked used (e.g. double release).
func (p *Pool) Release(t gpu.Texture) {
	if !p.used[t] {
		return
	}
	delete(p.used, t)
	p.free = append(p.free, t)
}

// ReclaimAll moves every in-use texture back to the free set, for use on
// an IDR boundary when the reference set is discarded wholesale.
func (p *Pool) ReclaimAll() {
	for t := range p.used {
		p.free = append(p.free, t)
	}
	p.used = make(map[gpu.Texture]bool, p.capacity+1)
}

// Len returns the number of textures currently checked out.
func (p *Pool) Len() int { return len(p.used) }

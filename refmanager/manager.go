/*
DESCRIPTION
  manager.go tracks the decoded picture buffer's reference descriptor
  list: which reconstructed pictures are currently valid references, in
  newest-first order, and maps picture-order-count reference lists onto
  indices into that list for an EncodeFrame call.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package refmanager maintains the reference picture descriptor list a
// hardware H.264 encoder needs for each non-intra frame: which
// reconstructed pictures are still live references and where each one
// lives in the current EncodeFrame call's reference texture array.
package refmanager

import (
	"fmt"

	"github.com/ausocean/hwenc/gpu"
	"github.com/ausocean/hwenc/refpool"
)

// Descriptor identifies one reference picture in the decoded picture
// buffer by its picture order count and its IDR-relative frame number.
type Descriptor struct {
	Texture                 gpu.Texture
	PictureOrderCountNumber uint32
	FrameNumber             uint32
}

// Manager owns the descriptor list and the reconstructed-texture pool
// backing it. It is reset on every IDR frame and accumulates one entry
// per subsequently-encoded reference frame, evicting the oldest entry
// once the list reaches its configured capacity.
type Manager struct {
	pool                 *refpool.Pool
	maxReferenceFrames   int
	descriptors          []Descriptor // newest first.
	currentReconstructed gpu.Texture
	currentIsReference   bool
}

// New returns a Manager bounded to maxReferenceFrames live descriptors.
func New(pool *refpool.Pool, maxReferenceFrames int) *Manager {
	return &Manager{pool: pool, maxReferenceFrames: maxReferenceFrames}
}

// PrepareForFrame resets the descriptor list if isIDR, then acquires a
// reconstructed-picture texture for the frame about to be encoded if
// useAsReference is true. Call this before building the EncodeFrame
// command for the frame.
func (m *Manager) PrepareForFrame(isIDR, useAsReference bool) error {
	if isIDR {
		m.Reset()
	}
	m.currentIsReference = useAsReference
	m.currentReconstructed = nil
	if !useAsReference {
		return nil
	}
	t, err := m.pool.Acquire()
	if err != nil {
		return fmt.Errorf("refmanager: acquire reconstructed texture: %w", err)
	}
	m.currentReconstructed = t
	return nil
}

// CurrentReconstructed returns the texture PrepareForFrame acquired for
// the frame currently being encoded, or nil if that frame is not used as
// a reference.
func (m *Manager) CurrentReconstructed() gpu.Texture { return m.currentReconstructed }

// GetReferenceFrames returns the textures of every live descriptor,
// newest first, for use as the reference array in an EncodeFrame call.
// It returns nil for an IDR or I frame, which reference nothing.
func (m *Manager) GetReferenceFrames(isIntra bool) []gpu.Texture {
	if isIntra {
		return nil
	}
	out := make([]gpu.Texture, len(m.descriptors))
	for i, d := range m.descriptors {
		out[i] = d.Texture
	}
	return out
}

// MapPOCListToIndices rewrites a list of reference picture-order-counts
// into indices into the slice GetReferenceFrames returns, matching the
// order EncodeFrame will be given the reference textures in. It errors if
// any POC in pocs is not currently a live descriptor.
func (m *Manager) MapPOCListToIndices(pocs []uint32) ([]int, error) {
	out := make([]int, len(pocs))
	for i, poc := range pocs {
		idx := -1
		for j, d := range m.descriptors {
			if d.PictureOrderCountNumber == poc {
				idx = j
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("refmanager: poc %d not found in reference descriptor list", poc)
		}
		out[i] = idx
	}
	return out, nil
}

// UpdateAfterEmission inserts the frame just encoded into the descriptor
// list if it was prepared as a reference, evicting the oldest descriptor
// (and releasing its texture back to the pool) if the list is full.
func (m *Manager) UpdateAfterEmission(poc, frameNumber uint32) {
	if !m.currentIsReference {
		return
	}
	if len(m.descriptors) >= m.maxReferenceFrames {
		m.removeOldest()
	}
	d := Descriptor{
		Texture:                 m.currentReconstructed,
		PictureOrderCountNumber: poc,
		FrameNumber:             frameNumber,
	}
	m.descriptors = append([]Descriptor{d}, m.descriptors...)
}

func (m *Manager) removeOldest() {
	if len(m.descriptors) == 0 {
		return
	}
	oldest := m.descriptors[len(m.descriptors)-1]
	m.descriptors = m.descriptors[:len(m.descriptors)-1]
	m.pool.Release(oldest.Texture)
}

// Reset discards every reference descriptor and reclaims their textures
// back to the free pool. Called automatically by PrepareForFrame on an
// IDR frame.
func (m *Manager) Reset() {
	m.descriptors = nil
	m.pool.ReclaimAll()
}

// Len returns the number of live reference descriptors.
func (m *Manager) Len() int { return len(m.descriptors) }

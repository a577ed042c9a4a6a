/*
DESCRIPTION
  planner.go decides, for each frame pushed in display order, whether it
  is an IDR, P or B frame, buffers B frames until both of their
  reference frames have been encoded, and produces the L0/L1 reference
  lists each non-intra frame needs.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package gopplanner computes frame types and reference lists for a fixed
// IDR-interval, single-B-frame-depth GOP structure, and reorders B frames
// from display order into encoding order.
package gopplanner

// FrameType classifies a picture's coding type.
type FrameType int

const (
	IDR FrameType = iota
	I
	P
	B
)

func (t FrameType) String() string {
	switch t {
	case IDR:
		return "IDR"
	case I:
		return "I"
	case P:
		return "P"
	case B:
		return "B"
	default:
		return "unknown"
	}
}

// raw is one display-order frame awaiting encode, plus its planning
// metadata.
type raw struct {
	frame                  interface{}
	frameType              FrameType
	displayOrder           uint64
	idrPicID               uint32
	useAsReference         bool
	futureReferenceDisplay uint64 // only meaningful for B frames.
}

// Planned is a frame ready to submit for encoding, with its reference
// lists already resolved to picture order counts relative to the last
// IDR.
type Planned struct {
	Frame             interface{}
	FrameType         FrameType
	PictureOrderCount uint32

	// FrameNumber is the H.264 frame_num value: the count of reference
	// frames encoded since the last IDR, resetting to 0 at every IDR.
	FrameNumber uint32

	// DecodingOrderNumber is the count of frames encoded since the start
	// of the stream. Unlike FrameNumber, it never resets at an IDR: it is
	// monotone across the whole output, matching the order callers
	// receive frames from WaitForEncodedFrame in.
	DecodingOrderNumber uint64

	IDRPicID       uint32
	UseAsReference bool
	L0             []uint32
	L1             []uint32
}

// Planner implements the GOP planning state machine: Push to
// classify and (for B frames) buffer a picture in display order, Next to
// pull the next picture ready to encode in decoding order.
type Planner struct {
	keyFrameInterval    uint64 // 0 means infinite GOP.
	bFramesCount        uint64
	maxReferenceFrames  uint64

	currentDisplayOrder uint64
	currentDecodeOrder  uint64
	lastIDRDisplayOrder uint64
	idrPicID            uint32

	encodedReferenceDisplayOrders []uint64 // decoding-order list of reference frames' display order numbers.

	current *raw
	reorder []raw
}

// New returns a Planner for the given GOP configuration. keyFrameInterval
// of 0 means an infinite GOP (a single IDR at the start of the
// sequence).
func New(keyFrameInterval, bFramesCount, maxReferenceFrames uint64) *Planner {
	return &Planner{
		keyFrameInterval:   keyFrameInterval,
		bFramesCount:       bFramesCount,
		maxReferenceFrames: maxReferenceFrames,
	}
}

// FrameTypeAt classifies the picture at the given display order number
// under this planner's fixed GOP configuration.
func (p *Planner) FrameTypeAt(displayOrder uint64) FrameType {
	if displayOrder == 0 || (p.keyFrameInterval > 0 && displayOrder%p.keyFrameInterval == 0) {
		return IDR
	}
	gopStart := p.gopStart(displayOrder)
	if (displayOrder-gopStart)%(p.bFramesCount+1) == 0 {
		return P
	}
	return B
}

func (p *Planner) gopStart(displayOrder uint64) uint64 {
	if p.keyFrameInterval == 0 {
		return 0
	}
	return (displayOrder / p.keyFrameInterval) * p.keyFrameInterval
}

// nextReferenceFrameNumber returns the display order of the next frame
// after displayOrder that will be encoded as a reference (a P or IDR
// frame).
func (p *Planner) nextReferenceFrameNumber(displayOrder uint64) uint64 {
	gopStart := p.gopStart(displayOrder)
	pInterval := p.bFramesCount + 1
	return ((displayOrder-gopStart)/pInterval)*pInterval + pInterval + gopStart
}

// nextIDRFrameNumber returns the display order of the next IDR frame
// strictly after displayOrder, or ^uint64(0) if the GOP is infinite.
func (p *Planner) nextIDRFrameNumber(displayOrder uint64) uint64 {
	if p.keyFrameInterval == 0 {
		return ^uint64(0)
	}
	return (displayOrder/p.keyFrameInterval + 1) * p.keyFrameInterval
}

// Push classifies frame (opaque to the planner) at the next display order
// position. IDR and P frames become immediately available from Next; B
// frames are buffered until their future reference frame has been
// encoded, and are converted to P frames if no P frame follows them
// before the next IDR.
func (p *Planner) Push(frame interface{}) {
	displayOrder := p.currentDisplayOrder
	frameType := p.FrameTypeAt(displayOrder)

	if frameType == IDR {
		p.encodedReferenceDisplayOrders = nil
		p.lastIDRDisplayOrder = displayOrder
		if displayOrder != 0 {
			p.idrPicID++
		}
	}

	r := raw{frame: frame, frameType: frameType, displayOrder: displayOrder, idrPicID: p.idrPicID}

	for {
		switch r.frameType {
		case IDR:
			r.useAsReference = true
			p.current = &r
		case P:
			r.useAsReference = true
			p.current = &r
		case B:
			future := p.nextReferenceFrameNumber(r.displayOrder)
			nextIDR := p.nextIDRFrameNumber(r.displayOrder)
			if future >= nextIDR {
				r.frameType = P
				continue
			}
			r.useAsReference = false
			r.futureReferenceDisplay = future
			p.reorder = append(p.reorder, r)
			p.current = nil
		}
		break
	}

	p.currentDisplayOrder++
}

// Next returns the next frame ready for encoding in decoding order, and
// whether one was available. A B frame is withheld until its future
// reference frame (tracked by OnEmitted) has already been encoded.
func (p *Planner) Next() (Planned, bool) {
	if p.current == nil {
		r, ok := p.nextBuffered()
		if !ok {
			return Planned{}, false
		}
		p.current = &r
	}
	return p.buildPlanned(*p.current), true
}

func (p *Planner) nextBuffered() (raw, bool) {
	if len(p.reorder) == 0 {
		return raw{}, false
	}
	front := p.reorder[0]
	if front.frameType == B {
		if len(p.encodedReferenceDisplayOrders) == 0 {
			return raw{}, false
		}
		last := p.encodedReferenceDisplayOrders[len(p.encodedReferenceDisplayOrders)-1]
		if last < front.futureReferenceDisplay {
			return raw{}, false
		}
	}
	p.reorder = p.reorder[1:]
	return front, true
}

func (p *Planner) buildPlanned(r raw) Planned {
	var l0, l1 []uint32
	switch r.frameType {
	case P:
		past := p.encodedReferenceDisplayOrders[len(p.encodedReferenceDisplayOrders)-1]
		l0 = []uint32{uint32(past - p.lastIDRDisplayOrder)}
	case B:
		n := len(p.encodedReferenceDisplayOrders)
		past := p.encodedReferenceDisplayOrders[n-2]
		future := p.encodedReferenceDisplayOrders[n-1]
		l0 = []uint32{uint32(past - p.lastIDRDisplayOrder)}
		l1 = []uint32{uint32(future - p.lastIDRDisplayOrder)}
	}

	return Planned{
		Frame:               r.frame,
		FrameType:           r.frameType,
		PictureOrderCount:   uint32(r.displayOrder - p.lastIDRDisplayOrder),
		FrameNumber:         uint32(p.currentDecodeOrder - p.lastIDRDisplayOrder),
		DecodingOrderNumber: p.currentDecodeOrder,
		IDRPicID:            r.idrPicID,
		UseAsReference:      r.useAsReference,
		L0:                  l0,
		L1:                  l1,
	}
}

// OnEmitted records that the frame most recently returned by Next has
// finished encoding, advancing the decoding order counter and, if it was
// used as a reference, appending it to the reference tracking list
// (capped to maxReferenceFrames entries).
func (p *Planner) OnEmitted() {
	if p.current == nil {
		return
	}
	if p.current.useAsReference {
		p.encodedReferenceDisplayOrders = append(p.encodedReferenceDisplayOrders, p.current.displayOrder)
		if uint64(len(p.encodedReferenceDisplayOrders)) > p.maxReferenceFrames {
			p.encodedReferenceDisplayOrders = p.encodedReferenceDisplayOrders[1:]
		}
	}
	p.currentDecodeOrder++
	p.current = nil
}

// Flush converts every B frame still held in the reorder buffer into a P
// frame, so a caller ending the sequence (or forcing the next pushed
// frame to be an IDR) does not lose buffered pictures that can never
// gain their future reference.
func (p *Planner) Flush() {
	for i := range p.reorder {
		if p.reorder[i].frameType == B {
			p.reorder[i].frameType = P
			p.reorder[i].useAsReference = true
		}
	}
}

// Pending reports how many frames are currently buffered in the reorder
// queue, awaiting a future reference frame.
func (p *Planner) Pending() int { return len(p.reorder) }

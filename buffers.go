package arbor

import (
	"log/slog"
	"sync/atomic"
)

// BufferIndex selects one of the two generations of every double-buffered
// value. It is always 0 or 1.
type BufferIndex uint8

// Other returns the opposite generation.
func (b BufferIndex) Other() BufferIndex {
	return 1 - b
}

// SceneBuffers holds the generation counter shared by the update and render
// stages. The update stage writes only UpdateBufferIndex, the render stage
// reads only RenderBufferIndex, and Swap flips both in one atomic step at the
// end of each update frame.
//
// Reads stay tear-free only while the update stage is at most one frame ahead
// of the render stage: the frame after next writes the generation being
// rendered. Callers running the stages on separate goroutines must not start
// Update again until the Render of the previous frame has returned.
// ebitenstage runs both on one goroutine, so rendering never overlaps an
// update frame.
type SceneBuffers struct {
	update atomic.Uint32
}

// UpdateBufferIndex returns the generation the update stage writes this frame.
func (s *SceneBuffers) UpdateBufferIndex() BufferIndex {
	return BufferIndex(s.update.Load())
}

// RenderBufferIndex returns the generation most recently published by the
// update stage.
func (s *SceneBuffers) RenderBufferIndex() BufferIndex {
	return BufferIndex(1 - s.update.Load())
}

// Swap publishes the generation just written and hands the other one to the
// next update frame. Only the update stage calls Swap.
func (s *SceneBuffers) Swap() {
	s.update.Store(1 - s.update.Load())
}

// UpdateContext is handed to every message, constraint function and animator
// while the update stage runs. It replaces any process-wide stage state.
type UpdateContext struct {
	// Buffer is the generation written this frame.
	Buffer BufferIndex
	// Frame counts update frames since the core was created.
	Frame uint64
	// Elapsed is the time advanced by this frame, in seconds.
	Elapsed float32
	// Logger is the core's structured logger.
	Logger *slog.Logger

	um *UpdateManager
}

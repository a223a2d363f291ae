package arbor

import (
	"log/slog"
	"time"
)

// Backend draws prepared instructions. It is called on the render stage only
// and must not touch scene-graph objects beyond reading the items it is given.
type Backend interface {
	// BeginInstruction binds the target and viewport of ri and clears it
	// when requested.
	BeginInstruction(ri *RenderInstruction)
	// DrawList draws one sorted list of ri.
	DrawList(ri *RenderInstruction, list *RenderList)
	// EndInstruction finishes ri.
	EndInstruction(ri *RenderInstruction)
	// Release frees a backend handle that no instruction refers to any more.
	Release(h ResourceHandle)
}

// RenderMessage is work the update stage hands to the render stage, run with
// the backend before the next frame is drawn.
type RenderMessage func(b Backend)

// RenderQueue carries render messages from the update stage to the render
// stage. The update stage appends to the slot of its buffer, the render stage
// drains the slot of the published buffer.
type RenderQueue struct {
	msgs DoubleBuffered[[]RenderMessage]
}

// Post appends m for generation buf. Update stage only.
func (q *RenderQueue) Post(buf BufferIndex, m RenderMessage) {
	q.msgs.Set(buf, append(q.msgs.Get(buf), m))
}

// Len returns the number of messages waiting in buf.
func (q *RenderQueue) Len(buf BufferIndex) int { return len(q.msgs.Get(buf)) }

// process runs and clears the messages of generation buf. Render stage only.
func (q *RenderQueue) process(buf BufferIndex, b Backend) int {
	msgs := q.msgs.Get(buf)
	for i, m := range msgs {
		m(b)
		msgs[i] = nil
	}
	q.msgs.Set(buf, msgs[:0])
	return len(msgs)
}

// RenderManager is the render stage. It reads only the generation most
// recently published by the update stage.
type RenderManager struct {
	buffers      *SceneBuffers
	instructions *RenderInstructionContainer
	queue        *RenderQueue
	logger       *slog.Logger
	debug        bool
	frames       uint64
}

func newRenderManager(buffers *SceneBuffers, instructions *RenderInstructionContainer, queue *RenderQueue, logger *slog.Logger, debug bool) *RenderManager {
	return &RenderManager{
		buffers:      buffers,
		instructions: instructions,
		queue:        queue,
		logger:       logger,
		debug:        debug,
	}
}

// Render runs pending render messages and draws every instruction of the
// published generation. Returns the number of lists drawn.
func (rm *RenderManager) Render(b Backend) int {
	if b == nil {
		panic("arbor: Render needs a backend")
	}
	var start time.Time
	if rm.debug {
		start = time.Now()
	}
	buf := rm.buffers.RenderBufferIndex()
	released := rm.queue.process(buf, b)

	lists := 0
	for _, ri := range rm.instructions.Instructions(buf) {
		b.BeginInstruction(ri)
		for _, l := range ri.Lists() {
			b.DrawList(ri, l)
			lists++
		}
		b.EndInstruction(ri)
	}
	rm.frames++

	if rm.debug {
		rm.logger.Debug("Render frame.",
			"frame", rm.frames,
			"buffer", buf,
			"lists", lists,
			"renderMessages", released,
			"duration", time.Since(start),
		)
	}
	return lists
}

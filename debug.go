package arbor

import (
	"fmt"
	"log/slog"
	"time"
)

// frameStats holds per-frame timing and counters of the update stage. Only
// logged when the core runs in debug mode.
type frameStats struct {
	messageTime    time.Duration
	animateTime    time.Duration
	constraintTime time.Duration
	nodeTime       time.Duration
	prepareTime    time.Duration

	messageCount    int
	nodeCount       int
	constraintCount int
	itemCount       int
	culledCount     int
	listCount       int
	reusedLists     int
}

// logStats writes the frame statistics at debug level.
func logStats(logger *slog.Logger, frame uint64, stats frameStats) {
	total := stats.messageTime + stats.animateTime + stats.constraintTime + stats.nodeTime + stats.prepareTime
	logger.Debug("Update frame.",
		"frame", frame,
		"messages", stats.messageTime,
		"animate", stats.animateTime,
		"constraints", stats.constraintTime,
		"nodes", stats.nodeTime,
		"prepare", stats.prepareTime,
		"total", total,
	)
	logger.Debug("Update counters.",
		"frame", frame,
		"messageCount", stats.messageCount,
		"nodeCount", stats.nodeCount,
		"constraintCount", stats.constraintCount,
		"items", stats.itemCount,
		"culled", stats.culledCount,
		"lists", stats.listCount,
		"reusedLists", stats.reusedLists,
	)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// violation reports a broken usage contract. Debug builds panic so the caller
// sees the stack; otherwise the operation is dropped and logged.
func violation(debug bool, logger *slog.Logger, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if debug {
		panic("arbor: " + msg)
	}
	logger.Error("Contract violation, operation ignored.", "error", msg)
}

// debugMaxTreeDepth is the depth past which a warning is logged on connect.
const debugMaxTreeDepth = 64

func debugCheckTreeDepth(logger *slog.Logger, n *Node) {
	if d := n.Depth(); d > debugMaxTreeDepth {
		logger.Warn("Tree depth exceeds threshold.", "node", n.Name(), "depth", d, "threshold", debugMaxTreeDepth)
	}
}

// debugMaxChildCount is the child count past which a warning is logged.
const debugMaxChildCount = 1000

func debugCheckChildCount(logger *slog.Logger, n *Node) {
	if len(n.children) > debugMaxChildCount {
		logger.Warn("Node has many children.", "node", n.Name(), "children", len(n.children), "threshold", debugMaxChildCount)
	}
}

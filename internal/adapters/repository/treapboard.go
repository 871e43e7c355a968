package repository

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/okian/inkcheck/internal/domain/model"
	"github.com/okian/inkcheck/pkg/metrics"
)

const defaultCapacity = 10_000

// Treap-based, in-memory Board.
//
// Ordering: risk DESC, then session id ASC. "less" means ranks earlier, so an
// in-order traversal yields the board from most to least suspicious and the
// rightmost node is the first to be evicted.

type node struct {
	id    string
	risk  int
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

func less(aRisk int, aID string, bRisk int, bID string) bool {
	if aRisk != bRisk {
		return aRisk > bRisk
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

// priority hashes the id so tree shape is stable for a given set of sessions.
func priority(id string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(id))
	return h.Sum64()
}

func insert(n *node, id string, risk int) *node {
	if n == nil {
		return &node{id: id, risk: risk, prio: priority(id), size: 1}
	}
	if less(risk, id, n.risk, n.id) {
		n.left = insert(n.left, id, risk)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, risk)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, id string, risk int) *node {
	if n == nil {
		return nil
	}
	switch {
	case risk == n.risk && id == n.id:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, risk)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, risk)
		}
	case less(risk, id, n.risk, n.id):
		n.left = deleteNode(n.left, id, risk)
	default:
		n.right = deleteNode(n.right, id, risk)
	}
	fix(n)
	return n
}

// rankOf returns the 1-based position of (risk, id), assuming it is present.
func rankOf(n *node, id string, risk int) int {
	rank := 0
	for n != nil {
		switch {
		case risk == n.risk && id == n.id:
			return rank + nsize(n.left) + 1
		case less(risk, id, n.risk, n.id):
			n = n.left
		default:
			rank += nsize(n.left) + 1
			n = n.right
		}
	}
	return rank
}

func last(n *node) *node {
	if n == nil {
		return nil
	}
	for n.right != nil {
		n = n.right
	}
	return n
}

type record struct {
	report    model.Report
	updatedAt time.Time
}

// collectTop appends up to limit entries in rank order.
func collectTop(n *node, limit int, byID map[string]record, out *[]Entry) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTop(n.left, limit, byID, out)
	if len(*out) < limit {
		rec := byID[n.id]
		*out = append(*out, Entry{Rank: len(*out) + 1, UpdatedAt: rec.updatedAt, Report: rec.report})
	}
	if len(*out) < limit {
		collectTop(n.right, limit, byID, out)
	}
}

// TreapBoard is a bounded Board. Upserts, lookups and evictions are
// O(log n) expected; Top(k) is O(k + log n).
type TreapBoard struct {
	mu       sync.RWMutex
	root     *node
	byID     map[string]record
	capacity int
	now      func() time.Time
}

// NewTreapBoard constructs an empty board.
func NewTreapBoard(opts ...Option) *TreapBoard {
	b := &TreapBoard{
		byID:     make(map[string]record),
		capacity: defaultCapacity,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	metrics.UpdateBoardSessions(0)
	return b
}

// Upsert stores report as the latest for its session. When the board is
// over capacity the lowest ranked session is evicted, which may be the one
// just written.
func (b *TreapBoard) Upsert(_ context.Context, report model.Report) error {
	if report.SessionID == "" {
		return ErrMissingSession
	}
	start := time.Now()
	defer func() {
		metrics.RecordBoardUpdateLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	b.mu.Lock()
	if old, ok := b.byID[report.SessionID]; ok {
		b.root = deleteNode(b.root, report.SessionID, old.report.Risk)
	}
	b.byID[report.SessionID] = record{report: report, updatedAt: b.now()}
	b.root = insert(b.root, report.SessionID, report.Risk)

	evicted := 0
	for len(b.byID) > b.capacity {
		tail := last(b.root)
		b.root = deleteNode(b.root, tail.id, tail.risk)
		delete(b.byID, tail.id)
		evicted++
	}
	size := len(b.byID)
	b.mu.Unlock()

	for i := 0; i < evicted; i++ {
		metrics.RecordBoardEviction()
	}
	metrics.UpdateBoardSessions(size)
	return nil
}

// Get returns the latest report of a session with its current rank.
func (b *TreapBoard) Get(_ context.Context, sessionID string) (Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordBoardQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	b.mu.RLock()
	defer b.mu.RUnlock()

	rec, ok := b.byID[sessionID]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return Entry{}, ErrNotFound
	}
	return Entry{
		Rank:      rankOf(b.root, sessionID, rec.report.Risk),
		UpdatedAt: rec.updatedAt,
		Report:    rec.report,
	}, nil
}

// Top returns the n highest ranked sessions.
func (b *TreapBoard) Top(_ context.Context, n int) ([]Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordBoardQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Entry, 0, min(n, len(b.byID)))
	collectTop(b.root, n, b.byID, &out)
	return out, nil
}

// Len returns the number of sessions on the board.
func (b *TreapBoard) Len(_ context.Context) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.byID)
}

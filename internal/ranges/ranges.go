package ranges

import (
	"errors"
	"fmt"
	"iter"
)

var (
	ErrInvalidStep  = errors.New("step must be greater than 0")
	ErrInvalidStart = errors.New("start must not be negative")
)

// ByteRange is the half-open byte interval [Start, End).
type ByteRange struct {
	Start int64
	End   int64
}

func (r ByteRange) Len() int64 {
	return r.End - r.Start
}

// Header renders the range as a Range header value. HTTP byte ranges are
// inclusive on both ends, so the last byte on the wire is End-1.
func (r ByteRange) Header() string {
	return fmt.Sprintf("bytes=%d-%d", r.Start, r.End-1)
}

func (r ByteRange) String() string {
	return fmt.Sprintf("[%d, %d)", r.Start, r.End)
}

// Plan describes the ranges covering [start, end) in steps of at most step
// bytes. A Plan is an immutable value and can be iterated any number of times.
type Plan struct {
	start int64
	end   int64
	step  int64
}

func NewPlan(start, end, step int64) (Plan, error) {
	if step <= 0 {
		return Plan{}, fmt.Errorf("%w: got %d", ErrInvalidStep, step)
	}
	if start < 0 {
		return Plan{}, fmt.Errorf("%w: got %d", ErrInvalidStart, start)
	}
	return Plan{start: start, end: end, step: step}, nil
}

// ForLength plans the whole of a resource of the given length.
func ForLength(length, step int64) (Plan, error) {
	return NewPlan(0, length, step)
}

func (p Plan) Start() int64 { return p.start }
func (p Plan) End() int64   { return p.end }
func (p Plan) Step() int64  { return p.step }

// Len returns the number of ranges the plan produces.
func (p Plan) Len() int64 {
	if p.step <= 0 || p.end <= p.start {
		return 0
	}
	span := p.end - p.start
	n := span / p.step
	if span%p.step != 0 {
		n++
	}
	return n
}

// Cursor returns a fresh single-pass cursor positioned at the plan start.
func (p Plan) Cursor() *Cursor {
	return &Cursor{pos: p.start, end: p.end, step: p.step}
}

// All yields every range of the plan in order. Each call starts over.
func (p Plan) All() iter.Seq[ByteRange] {
	return func(yield func(ByteRange) bool) {
		c := p.Cursor()
		for {
			r, ok := c.Next()
			if !ok || !yield(r) {
				return
			}
		}
	}
}

// Collect materializes the plan, mostly useful in tests and logs.
func (p Plan) Collect() []ByteRange {
	out := make([]ByteRange, 0, p.Len())
	for r := range p.All() {
		out = append(out, r)
	}
	return out
}

type Cursor struct {
	pos  int64
	end  int64
	step int64
}

// Next returns the next range and advances the cursor. It returns false once
// the cursor has reached the end, which is the normal end of the sequence.
func (c *Cursor) Next() (ByteRange, bool) {
	if c.step <= 0 || c.pos >= c.end {
		return ByteRange{}, false
	}
	next := c.end
	if c.end-c.pos > c.step {
		next = c.pos + c.step
	}
	r := ByteRange{Start: c.pos, End: next}
	c.pos = next
	return r, true
}

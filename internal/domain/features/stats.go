package features

import (
	"math"
	"sort"
)

// runningStats accumulates mean and population variance with Welford's
// online update.
type runningStats struct {
	n    int64
	mean float64
	m2   float64
}

func (r *runningStats) add(x float64) {
	r.n++
	delta := x - r.mean
	r.mean += delta / float64(r.n)
	r.m2 += delta * (x - r.mean)
}

func (r *runningStats) variance() float64 {
	if r.n == 0 {
		return 0
	}
	return r.m2 / float64(r.n)
}

// medianEstimator tracks the median in constant memory using the P² algorithm
// (Jain and Chlamtac). With fewer than five samples it is exact.
type medianEstimator struct {
	count   int
	heights [5]float64
	pos     [5]float64
	desired [5]float64
}

var p2Increments = [5]float64{0, 0.25, 0.5, 0.75, 1}

func (m *medianEstimator) add(x float64) {
	if m.count < 5 {
		m.heights[m.count] = x
		m.count++
		if m.count == 5 {
			sort.Float64s(m.heights[:])
			for i := range m.pos {
				m.pos[i] = float64(i)
			}
			m.desired = [5]float64{0, 1, 2, 3, 4}
		}
		return
	}
	m.count++

	var k int
	switch {
	case x < m.heights[0]:
		m.heights[0] = x
		k = 0
	case x >= m.heights[4]:
		m.heights[4] = x
		k = 3
	default:
		for k = 0; k < 3; k++ {
			if x < m.heights[k+1] {
				break
			}
		}
	}

	for i := k + 1; i < 5; i++ {
		m.pos[i]++
	}
	for i := range m.desired {
		m.desired[i] += p2Increments[i]
	}

	for i := 1; i <= 3; i++ {
		d := m.desired[i] - m.pos[i]
		if (d >= 1 && m.pos[i+1]-m.pos[i] > 1) || (d <= -1 && m.pos[i-1]-m.pos[i] < -1) {
			step := math.Copysign(1, d)
			h := m.parabolic(i, step)
			if m.heights[i-1] < h && h < m.heights[i+1] {
				m.heights[i] = h
			} else {
				m.heights[i] = m.linear(i, step)
			}
			m.pos[i] += step
		}
	}
}

func (m *medianEstimator) parabolic(i int, d float64) float64 {
	q, n := m.heights, m.pos
	return q[i] + d/(n[i+1]-n[i-1])*
		((n[i]-n[i-1]+d)*(q[i+1]-q[i])/(n[i+1]-n[i])+
			(n[i+1]-n[i]-d)*(q[i]-q[i-1])/(n[i]-n[i-1]))
}

func (m *medianEstimator) linear(i int, d float64) float64 {
	j := i + int(d)
	return m.heights[i] + d*(m.heights[j]-m.heights[i])/(m.pos[j]-m.pos[i])
}

func (m *medianEstimator) value() float64 {
	switch {
	case m.count == 0:
		return 0
	case m.count >= 5:
		return m.heights[2]
	}
	buf := make([]float64, m.count)
	copy(buf, m.heights[:m.count])
	sort.Float64s(buf)
	mid := m.count / 2
	if m.count%2 == 1 {
		return buf[mid]
	}
	return (buf[mid-1] + buf[mid]) / 2
}

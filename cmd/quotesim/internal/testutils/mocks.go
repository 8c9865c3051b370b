package testutils

import (
	"sync"
	"time"
)

type MockClock struct {
	CurrentTime time.Time
	Mu          sync.Mutex
}

func (m *MockClock) Now() time.Time {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return m.CurrentTime
}

func (m *MockClock) Sleep(d time.Duration) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.CurrentTime = m.CurrentTime.Add(d)
}

// MockRand returns fixed values. With Floats set, Float64 cycles through it.
type MockRand struct {
	ValInt   int
	ValFloat float64
	Floats   []float64
	next     int
	Mu       sync.Mutex
}

func (m *MockRand) Intn(n int) int { return m.ValInt }

func (m *MockRand) Float64() float64 {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if len(m.Floats) == 0 {
		return m.ValFloat
	}
	v := m.Floats[m.next%len(m.Floats)]
	m.next++
	return v
}

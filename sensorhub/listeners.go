package sensorhub

import (
	"sort"
	"strconv"

	sherrors "github.com/CodedInternet/sensorhub/sensorhub/errors"
)

// ListenerRegistry counts the consumers attached to each resolved rate. An
// entry exists only while its count is at least one.
type ListenerRegistry struct {
	capacity int
	maxRate  uint32
	counts   map[uint32]uint32
}

func NewListenerRegistry(capacity int, maxRate uint32) *ListenerRegistry {
	return &ListenerRegistry{
		capacity: capacity,
		maxRate:  maxRate,
		counts:   make(map[uint32]uint32, capacity),
	}
}

// Attach records one more consumer at rate and returns the new count.
func (l *ListenerRegistry) Attach(rate uint32) (count uint32, err error) {
	if rate > l.maxRate {
		return 0, sherrors.RateOutOfRangeError{Rate: rate, Max: l.maxRate}
	}

	count, exists := l.counts[rate]
	if !exists && len(l.counts) >= l.capacity {
		return 0, sherrors.CapacityExceededError{Map: "listeners", Capacity: l.capacity, Key: strconv.FormatUint(uint64(rate), 10)}
	}

	count++
	l.counts[rate] = count
	return count, nil
}

// Detach releases one consumer at rate and returns the remaining count. The
// entry is dropped once the count reaches zero.
func (l *ListenerRegistry) Detach(rate uint32) (count uint32, err error) {
	count, exists := l.counts[rate]
	if !exists {
		return 0, sherrors.UnderflowError{Rate: rate}
	}

	count--
	if count == 0 {
		delete(l.counts, rate)
	} else {
		l.counts[rate] = count
	}
	return count, nil
}

func (l *ListenerRegistry) Count(rate uint32) uint32 {
	return l.counts[rate]
}

// Len is the number of distinct rates with at least one listener.
func (l *ListenerRegistry) Len() int {
	return len(l.counts)
}

// Total sums the listeners across every rate.
func (l *ListenerRegistry) Total() (total uint32) {
	for _, c := range l.counts {
		total += c
	}
	return
}

// Rates returns the attached rates in ascending order.
func (l *ListenerRegistry) Rates() []uint32 {
	rates := make([]uint32, 0, len(l.counts))
	for r := range l.counts {
		rates = append(rates, r)
	}
	sort.Slice(rates, func(i, j int) bool { return rates[i] < rates[j] })
	return rates
}

// Max is the highest attached rate, the rate shared hardware has to run at to
// satisfy every listener. Zero when nothing is attached.
func (l *ListenerRegistry) Max() (max uint32) {
	for r := range l.counts {
		if r > max {
			max = r
		}
	}
	return
}

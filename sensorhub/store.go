package sensorhub

import (
	sherrors "github.com/CodedInternet/sensorhub/sensorhub/errors"
)

// AttributeStore is a bounded map of attribute key to Value. It never grows
// past its capacity and never evicts: a new key into a full store fails and
// leaves the contents as they were.
//
// AttributeStore does no locking of its own, see Shared.
type AttributeStore struct {
	capacity int
	keyWidth int
	keys     []string
	values   map[string]Value
}

func NewAttributeStore(capacity, keyWidth int) *AttributeStore {
	return &AttributeStore{
		capacity: capacity,
		keyWidth: keyWidth,
		keys:     make([]string, 0, capacity),
		values:   make(map[string]Value, capacity),
	}
}

func (s *AttributeStore) Get(key string) (v Value, ok bool) {
	v, ok = s.values[key]
	return
}

// InsertIfAbsent stores v under key only when key is not present yet. An
// existing value is left untouched and nil is returned.
func (s *AttributeStore) InsertIfAbsent(key string, v Value) error {
	if _, exists := s.values[key]; exists {
		return nil
	}
	return s.insert(key, v)
}

// Upsert stores v under key, replacing any previous value.
func (s *AttributeStore) Upsert(key string, v Value) error {
	if _, exists := s.values[key]; exists {
		if err := checkValue(v); err != nil {
			return err
		}
		s.values[key] = v
		return nil
	}
	return s.insert(key, v)
}

func (s *AttributeStore) insert(key string, v Value) error {
	if len(key) > s.keyWidth {
		return sherrors.KeyTooLongError{Key: key, Width: s.keyWidth}
	}
	if err := checkValue(v); err != nil {
		return err
	}
	if len(s.keys) >= s.capacity {
		return sherrors.CapacityExceededError{Map: "attributes", Capacity: s.capacity, Key: key}
	}

	s.keys = append(s.keys, key)
	s.values[key] = v
	return nil
}

func checkValue(v Value) error {
	if v == nil {
		return sherrors.InvalidValueError{Kind: "nil", Reason: "no value"}
	}
	return v.validate()
}

func (s *AttributeStore) Len() int {
	return len(s.keys)
}

func (s *AttributeStore) Capacity() int {
	return s.capacity
}

func (s *AttributeStore) KeyWidth() int {
	return s.keyWidth
}

// Keys returns the stored keys in insertion order.
func (s *AttributeStore) Keys() []string {
	keys := make([]string, len(s.keys))
	copy(keys, s.keys)
	return keys
}

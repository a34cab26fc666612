package cmap

// Range iterates over all key-value pairs.
//
// The callback returns false to stop iteration. The callback runs under the
// shard's read lock and must not call back into the map.
func (m *Map[V]) Range(fn func(key string, value V) bool) {
	for _, s := range m.shards {
		s.mu.RLock()
		for k, v := range s.items {
			if !fn(k, v) {
				s.mu.RUnlock()
				return
			}
		}
		s.mu.RUnlock()
	}
}

// Keys returns all keys.
func (m *Map[V]) Keys() []string {
	keys := make([]string, 0, m.Count())
	m.Range(func(key string, _ V) bool {
		keys = append(keys, key)
		return true
	})
	return keys
}

// GetOrSet returns the existing value for a key, or stores and returns the
// given value. The boolean reports whether the value already existed.
func (m *Map[V]) GetOrSet(key string, value V) (V, bool) {
	return m.GetOrCompute(key, func() V { return value })
}

// GetOrCompute is GetOrSet with a lazily built value. fn runs under the
// shard lock, at most once, and only when the key is absent.
func (m *Map[V]) GetOrCompute(key string, fn func() V) (V, bool) {
	s := m.getShard(key)

	s.mu.RLock()
	if existing, ok := s.items[key]; ok {
		s.mu.RUnlock()
		return existing, true
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.items[key]; ok {
		return existing, true
	}
	value := fn()
	s.items[key] = value
	return value, false
}

// Pop removes a key and returns its value.
func (m *Map[V]) Pop(key string) (V, bool) {
	s := m.getShard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	val, ok := s.items[key]
	if ok {
		delete(s.items, key)
	}
	return val, ok
}

// CompareAndDelete removes key only while it still maps to a value for
// which match returns true.
func (m *Map[V]) CompareAndDelete(key string, match func(V) bool) bool {
	s := m.getShard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	val, ok := s.items[key]
	if !ok || !match(val) {
		return false
	}
	delete(s.items, key)
	return true
}

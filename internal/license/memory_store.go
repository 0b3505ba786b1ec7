package license

import "sync"

// Store 以内存方式保存验证记录，键是请求者标识，保存即覆盖，不保留历史。
type Store struct {
	mu      sync.RWMutex
	records map[string]*Record
	order   []string
}

// NewStore 创建 Store。
func NewStore() *Store {
	return &Store{records: make(map[string]*Record)}
}

// Save 写入或覆盖请求者的当前记录。存储层信任调用方，不做任何校验。
func (s *Store) Save(record Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[record.RequesterID]; !ok {
		s.order = append(s.order, record.RequesterID)
	}
	clone := record
	s.records[record.RequesterID] = &clone
}

// Get 返回请求者的当前记录。
func (s *Store) Get(requesterID string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[requesterID]
	if !ok {
		return Record{}, false
	}
	return *record, true
}

// All 按首次写入顺序返回全部记录。
func (s *Store) All() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	results := make([]Record, 0, len(s.order))
	for _, id := range s.order {
		if record, ok := s.records[id]; ok {
			results = append(results, *record)
		}
	}
	return results
}

// Size 返回不同请求者的数量，而不是 Save 的调用次数。
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

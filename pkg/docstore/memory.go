package docstore

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
)

// Memory is an in-process Store. Documents go through bson so field names and
// omitempty behave as they do against MongoDB. Filters support equality,
// array membership, $eq, $ne, $lt, $lte, $gt, $gte, $in and $or on top-level fields.
type Memory struct {
	mu      sync.RWMutex
	docs    map[string]map[string]bson.Raw
	order   map[string][]string
	subs    map[int]*memorySub
	nextSub int
}

type memorySub struct {
	collection string
	filter     Filter
	fn         func(Change)
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		docs:  make(map[string]map[string]bson.Raw),
		order: make(map[string][]string),
		subs:  make(map[int]*memorySub),
	}
}

func (m *Memory) Create(_ context.Context, collection string, doc any) (string, error) {
	var fields bson.M
	if err := roundTrip(doc, &fields); err != nil {
		return "", err
	}
	id, _ := fields["_id"].(string)
	if id == "" {
		id = uuid.NewString()
		fields["_id"] = id
	}
	raw, err := bson.Marshal(fields)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	coll := m.collection(collection)
	if _, exists := coll[id]; exists {
		m.mu.Unlock()
		return "", fmt.Errorf("insert into %s: duplicate _id %q", collection, id)
	}
	coll[id] = raw
	m.order[collection] = append(m.order[collection], id)
	subs := m.matchingSubs(collection, fields, id, OpInsert)
	m.mu.Unlock()

	notify(subs, Change{Operation: OpInsert, ID: id, document: raw})
	return id, nil
}

func (m *Memory) Update(ctx context.Context, collection, id string, set Fields) (string, error) {
	if id == "" {
		return "", ErrIDRequired
	}
	matched, err := m.UpdateWhere(ctx, collection, Filter{"_id": id}, set)
	if err != nil {
		return "", err
	}
	if !matched {
		return "", ErrNotFound
	}
	return id, nil
}

func (m *Memory) UpdateWhere(_ context.Context, collection string, filter Filter, set Fields) (bool, error) {
	m.mu.Lock()
	coll := m.collection(collection)
	for _, id := range m.order[collection] {
		raw, ok := coll[id]
		if !ok {
			continue
		}
		var fields bson.M
		if err := bson.Unmarshal(raw, &fields); err != nil {
			m.mu.Unlock()
			return false, err
		}
		ok, err := matches(fields, filter)
		if err != nil {
			m.mu.Unlock()
			return false, err
		}
		if !ok {
			continue
		}
		for k, v := range set {
			if k == "_id" {
				continue
			}
			fields[k] = v
		}
		updated, err := bson.Marshal(fields)
		if err != nil {
			m.mu.Unlock()
			return false, err
		}
		// Normalize so subscribers and later reads see bson-native values.
		var stored bson.M
		if err := bson.Unmarshal(updated, &stored); err != nil {
			m.mu.Unlock()
			return false, err
		}
		coll[id] = updated
		subs := m.matchingSubs(collection, stored, id, OpUpdate)
		m.mu.Unlock()

		notify(subs, Change{Operation: OpUpdate, ID: id, document: updated})
		return true, nil
	}
	m.mu.Unlock()
	return false, nil
}

func (m *Memory) Get(_ context.Context, collection, id string, out any) (bool, error) {
	if id == "" {
		return false, ErrIDRequired
	}
	m.mu.RLock()
	raw, ok := m.collection(collection)[id]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	return true, bson.Unmarshal(raw, out)
}

func (m *Memory) Delete(_ context.Context, collection, id string) (bool, error) {
	if id == "" {
		return false, ErrIDRequired
	}
	m.mu.Lock()
	coll := m.collection(collection)
	if _, ok := coll[id]; !ok {
		m.mu.Unlock()
		return false, nil
	}
	delete(coll, id)
	order := m.order[collection]
	for i, existing := range order {
		if existing == id {
			m.order[collection] = append(order[:i:i], order[i+1:]...)
			break
		}
	}
	subs := m.matchingSubs(collection, nil, id, OpDelete)
	m.mu.Unlock()

	notify(subs, Change{Operation: OpDelete, ID: id})
	return true, nil
}

func (m *Memory) Find(_ context.Context, collection string, filter Filter, opts FindOptions, out any) error {
	target := reflect.ValueOf(out)
	if target.Kind() != reflect.Ptr || target.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("find %s: out must be a pointer to a slice", collection)
	}

	type row struct {
		raw    bson.Raw
		fields bson.M
	}
	var rows []row

	m.mu.RLock()
	coll := m.collection(collection)
	for _, id := range m.order[collection] {
		raw := coll[id]
		var fields bson.M
		if err := bson.Unmarshal(raw, &fields); err != nil {
			m.mu.RUnlock()
			return err
		}
		ok, err := matches(fields, filter)
		if err != nil {
			m.mu.RUnlock()
			return err
		}
		if ok {
			rows = append(rows, row{raw: raw, fields: fields})
		}
	}
	m.mu.RUnlock()

	if len(opts.Sort) > 0 {
		sort.SliceStable(rows, func(i, j int) bool {
			for _, s := range opts.Sort {
				c, _ := compare(rows[i].fields[s.Field], rows[j].fields[s.Field])
				if c == 0 {
					continue
				}
				if s.Desc {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}
	if opts.Limit > 0 && int64(len(rows)) > opts.Limit {
		rows = rows[:opts.Limit]
	}

	slice := reflect.MakeSlice(target.Elem().Type(), 0, len(rows))
	elemType := target.Elem().Type().Elem()
	for _, r := range rows {
		elem := reflect.New(elemType)
		if err := bson.Unmarshal(r.raw, elem.Interface()); err != nil {
			return fmt.Errorf("decode %s: %w", collection, err)
		}
		slice = reflect.Append(slice, elem.Elem())
	}
	target.Elem().Set(slice)
	return nil
}

// Subscribe registers fn for writes to collection. Delivery is synchronous
// with the write and in write order.
func (m *Memory) Subscribe(ctx context.Context, collection string, filter Filter, fn func(Change)) (Unsubscribe, error) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = &memorySub{collection: collection, filter: filter, fn: fn}
	m.mu.Unlock()

	done := make(chan struct{})
	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
			close(done)
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			unsubscribe()
		case <-done:
		}
	}()
	return unsubscribe, nil
}

func (m *Memory) collection(name string) map[string]bson.Raw {
	coll, ok := m.docs[name]
	if !ok {
		coll = make(map[string]bson.Raw)
		m.docs[name] = coll
	}
	return coll
}

// matchingSubs must be called with m.mu held.
func (m *Memory) matchingSubs(collection string, fields bson.M, id string, op Operation) []func(Change) {
	var out []func(Change)
	ids := make([]int, 0, len(m.subs))
	for subID := range m.subs {
		ids = append(ids, subID)
	}
	sort.Ints(ids)
	for _, subID := range ids {
		sub := m.subs[subID]
		if sub.collection != collection {
			continue
		}
		if op == OpDelete {
			if len(sub.filter) == 0 {
				out = append(out, sub.fn)
				continue
			}
			if want, ok := sub.filter["_id"]; ok && len(sub.filter) == 1 && want == id {
				out = append(out, sub.fn)
			}
			continue
		}
		if ok, err := matches(fields, sub.filter); err == nil && ok {
			out = append(out, sub.fn)
		}
	}
	return out
}

func notify(subs []func(Change), change Change) {
	for _, fn := range subs {
		fn(change)
	}
}

func roundTrip(in any, out any) error {
	raw, err := bson.Marshal(in)
	if err != nil {
		return err
	}
	return bson.Unmarshal(raw, out)
}

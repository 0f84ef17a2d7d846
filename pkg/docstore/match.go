package docstore

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func matches(doc bson.M, filter Filter) (bool, error) {
	for key, cond := range filter {
		if key == "$or" {
			ok, err := matchAny(doc, cond)
			if err != nil || !ok {
				return false, err
			}
			continue
		}
		if strings.HasPrefix(key, "$") {
			return false, fmt.Errorf("%w: %s", ErrUnsupported, key)
		}
		ok, err := matchField(doc[key], cond)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func matchAny(doc bson.M, cond any) (bool, error) {
	var branches []Filter
	switch v := cond.(type) {
	case []Filter:
		branches = v
	case []map[string]any:
		for _, b := range v {
			branches = append(branches, Filter(b))
		}
	case []any:
		for _, b := range v {
			f, ok := asFilter(b)
			if !ok {
				return false, fmt.Errorf("%w: $or branch %T", ErrUnsupported, b)
			}
			branches = append(branches, f)
		}
	default:
		return false, fmt.Errorf("%w: $or of %T", ErrUnsupported, cond)
	}
	for _, branch := range branches {
		ok, err := matches(doc, branch)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func asFilter(v any) (Filter, bool) {
	switch f := v.(type) {
	case Filter:
		return f, true
	case map[string]any:
		return Filter(f), true
	case bson.M:
		return Filter(f), true
	default:
		return nil, false
	}
}

func operatorDoc(cond any) (map[string]any, bool) {
	f, ok := asFilter(cond)
	if !ok || len(f) == 0 {
		return nil, false
	}
	for k := range f {
		if !strings.HasPrefix(k, "$") {
			return nil, false
		}
	}
	return f, true
}

func matchField(value, cond any) (bool, error) {
	ops, isOps := operatorDoc(cond)
	if !isOps {
		return equalOrContains(value, normalize(cond)), nil
	}
	for op, operand := range ops {
		want := normalize(operand)
		switch op {
		case "$eq":
			if !equalOrContains(value, want) {
				return false, nil
			}
		case "$ne":
			if equalOrContains(value, want) {
				return false, nil
			}
		case "$in":
			list, ok := want.(primitive.A)
			if !ok {
				return false, fmt.Errorf("%w: $in expects an array", ErrUnsupported)
			}
			found := false
			for _, candidate := range list {
				if equalOrContains(value, candidate) {
					found = true
					break
				}
			}
			if !found {
				return false, nil
			}
		case "$lt", "$lte", "$gt", "$gte":
			c, ok := compare(value, want)
			if !ok {
				return false, nil
			}
			switch {
			case op == "$lt" && c >= 0,
				op == "$lte" && c > 0,
				op == "$gt" && c <= 0,
				op == "$gte" && c < 0:
				return false, nil
			}
		default:
			return false, fmt.Errorf("%w: %s", ErrUnsupported, op)
		}
	}
	return true, nil
}

func equalOrContains(value, want any) bool {
	if arr, ok := value.(primitive.A); ok {
		if _, wantArr := want.(primitive.A); !wantArr {
			for _, item := range arr {
				if c, ok := compare(item, want); ok && c == 0 {
					return true
				}
			}
			return false
		}
	}
	if value == nil || want == nil {
		return value == nil && want == nil
	}
	c, ok := compare(value, want)
	return ok && c == 0
}

// normalize converts a Go value into the bson-native type it decodes to.
func normalize(v any) any {
	raw, err := bson.Marshal(bson.M{"v": v})
	if err != nil {
		return v
	}
	var out bson.M
	if err := bson.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out["v"]
}

func compare(a, b any) (int, bool) {
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(av, bv), true
	case primitive.DateTime:
		bv, ok := b.(primitive.DateTime)
		if !ok {
			return 0, false
		}
		switch {
		case av < bv:
			return -1, true
		case av > bv:
			return 1, true
		default:
			return 0, true
		}
	case bool:
		bv, ok := b.(bool)
		if !ok || av != bv {
			return 1, ok
		}
		return 0, true
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

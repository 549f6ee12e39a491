package tree

import "github.com/silicon-heaven/shvdevice-go/pkg/chainpack"

// UnpackData is the convenience parser trivial setters/getters use: it walks
// a payload IMap and, under key 1 (params), extracts the first numeric
// value it finds - an Int/UInt/Double taken as-is, a Decimal expanded via
// ToFloat - promoting everything to float64. If that value is itself a
// container, UnpackData looks at the container's immediate elements only;
// anything nested deeper is skipped rather than searched. The whole IMap is
// always fully drained before returning, regardless of whether a numeric
// value was found, so the stream stays correctly framed for whatever the
// handler writes next.
func UnpackData(u *chainpack.Unpacker) (value float64, found bool, err error) {
	item, ok := u.Next()
	if !ok {
		return 0, false, u.Err()
	}
	if item.Kind != chainpack.KindIMap {
		if !chainpack.Discard(u, item) {
			return 0, false, u.Err()
		}
		return 0, false, nil
	}

	for {
		keyItem, ok := u.Next()
		if !ok {
			return value, found, u.Err()
		}
		if keyItem.Kind == chainpack.KindContainerEnd {
			return value, found, nil
		}

		key, isInt := asIntItem(keyItem)
		valItem, ok := u.Next()
		if !ok {
			return value, found, u.Err()
		}

		if isInt && key == 1 && !found {
			v, got := extractFirstNumeric(u, valItem)
			if got {
				value, found = v, true
			}
			continue
		}
		if !chainpack.Discard(u, valItem) {
			return value, found, u.Err()
		}
	}
}

func asIntItem(item chainpack.Item) (int64, bool) {
	switch item.Kind {
	case chainpack.KindInt:
		return item.Int, true
	case chainpack.KindUInt:
		return int64(item.UInt), true
	default:
		return 0, false
	}
}

func numericValue(item chainpack.Item) (float64, bool) {
	switch item.Kind {
	case chainpack.KindInt:
		return float64(item.Int), true
	case chainpack.KindUInt:
		return float64(item.UInt), true
	case chainpack.KindDouble:
		return item.Double, true
	case chainpack.KindDecimal:
		return item.Decimal.ToFloat(), true
	default:
		return 0, false
	}
}

func isContainerKind(k chainpack.Kind) bool {
	switch k {
	case chainpack.KindList, chainpack.KindMap, chainpack.KindIMap, chainpack.KindMetaMap:
		return true
	default:
		return false
	}
}

func isKeyedContainerKind(k chainpack.Kind) bool {
	switch k {
	case chainpack.KindMap, chainpack.KindIMap, chainpack.KindMetaMap:
		return true
	default:
		return false
	}
}

// extractFirstNumeric consumes first completely (draining it if it is a
// container) and reports the first numeric value found among its immediate
// elements, or false if none was.
func extractFirstNumeric(u *chainpack.Unpacker, first chainpack.Item) (float64, bool) {
	if v, ok := numericValue(first); ok {
		return v, true
	}
	if !isContainerKind(first.Kind) {
		chainpack.Discard(u, first)
		return 0, false
	}

	result, found := 0.0, false
	keyed := isKeyedContainerKind(first.Kind)
	for {
		item, ok := u.Next()
		if !ok {
			return result, found
		}
		if item.Kind == chainpack.KindContainerEnd {
			return result, found
		}
		if keyed {
			valItem, ok := u.Next()
			if !ok {
				return result, found
			}
			if !found {
				if v, ok2 := numericValue(valItem); ok2 {
					result, found = v, true
					continue
				}
			}
			chainpack.Discard(u, valItem)
			continue
		}
		if !found {
			if v, ok2 := numericValue(item); ok2 {
				result, found = v, true
				continue
			}
		}
		chainpack.Discard(u, item)
	}
}

package chainpack

// Skip reads one item and discards it, draining any container or streaming
// value it opens. Used by the RPC frame parser to step over unrecognized
// meta keys and by handlers to drain a payload they aren't going to use.
func Skip(u *Unpacker) bool {
	item, ok := u.Next()
	if !ok {
		return false
	}
	return Discard(u, item)
}

// Discard consumes whatever item opened (a container's children down to its
// matching ContainerEnd, or a streamed Blob/String's remaining chunks). For
// a scalar item it is a no-op. The parser always consumes exactly one
// logical value, regardless of how deeply it nests.
func Discard(u *Unpacker, item Item) bool {
	switch item.Kind {
	case KindList, KindMap, KindIMap, KindMetaMap:
		return discardContainer(u)
	case KindBlob, KindString:
		cur := item
		for !cur.LastChunk {
			var ok bool
			cur, ok = u.NextChunk()
			if !ok {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// DrainContainer drains the remaining items of an already-open List/Map/
// IMap/MetaMap down to its matching ContainerEnd, recursing into any nested
// containers or streamed values it meets along the way. Unlike Discard, the
// container's opening item is assumed already consumed by the caller -
// this only finishes it off. Used when a handler bails out of parsing a
// container partway through but must still consume the rest of it to keep
// the stream correctly framed for the next message.
func DrainContainer(u *Unpacker) bool {
	return discardContainer(u)
}

// discardContainer drains items until the matching ContainerEnd, recursing
// into any nested containers or streamed values it meets along the way.
func discardContainer(u *Unpacker) bool {
	for {
		item, ok := u.Next()
		if !ok {
			return false
		}
		if item.Kind == KindContainerEnd {
			return true
		}
		if !Discard(u, item) {
			return false
		}
	}
}

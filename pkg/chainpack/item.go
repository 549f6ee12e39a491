package chainpack

// Kind tags the value carried by an Item. Container kinds (List, Map, IMap,
// MetaMap, ContainerEnd) are markers only: the decoder never materializes a
// container, it just tells the caller one was opened or closed and lets the
// caller track nesting itself (the node tree and RPC frame layers are the
// callers that need nesting; the codec stays a flat stream of markers).
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindUInt
	KindInt
	KindDouble
	KindDecimal
	KindDateTime
	KindBlob
	KindString
	KindCString
	KindList
	KindMap
	KindIMap
	KindMetaMap
	KindContainerEnd
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "Null"
	case KindBool:
		return "Bool"
	case KindUInt:
		return "UInt"
	case KindInt:
		return "Int"
	case KindDouble:
		return "Double"
	case KindDecimal:
		return "Decimal"
	case KindDateTime:
		return "DateTime"
	case KindBlob:
		return "Blob"
	case KindString:
		return "String"
	case KindCString:
		return "CString"
	case KindList:
		return "List"
	case KindMap:
		return "Map"
	case KindIMap:
		return "IMap"
	case KindMetaMap:
		return "MetaMap"
	case KindContainerEnd:
		return "ContainerEnd"
	default:
		return "Unknown"
	}
}

// Decimal is a mantissa/exponent pair: value == Mantissa * 10^Exponent.
type Decimal struct {
	Mantissa int64
	Exponent int32
}

// ToFloat expands the decimal to a float64, used by shv_unpack_data-style
// callers that want a single numeric out-parameter regardless of source type.
func (d Decimal) ToFloat() float64 {
	f := float64(d.Mantissa)
	e := d.Exponent
	for ; e > 0; e-- {
		f *= 10
	}
	for ; e < 0; e++ {
		f /= 10
	}
	return f
}

// DateTime is epoch milliseconds plus a UTC offset expressed in quarter
// hours, matching the wire encoding directly so round-tripping never loses
// the timezone annotation to a lossy time.Time conversion.
type DateTime struct {
	EpochMs     int64
	OffsetQuart int8 // signed, units of 15 minutes
}

// Item is a single tagged value decoded from (or about to be encoded to) the
// ChainPack stream. Only the fields relevant to Kind are meaningful; the
// zero value of the others is ignored by Pack and must be ignored by callers
// reading from Unpack.
type Item struct {
	Kind     Kind
	Bool     bool
	UInt     uint64
	Int      int64
	Double   float64
	Decimal  Decimal
	DateTime DateTime

	// Streaming Blob/String/CString fields. Bytes holds this chunk's payload
	// only (not the whole value). ChunkStart is the offset of Bytes[0] within
	// the full value, SizeToLoad is the value's total declared length (Blob/
	// String only; CString has no declared length), and LastChunk marks the
	// final chunk of the value.
	Bytes      []byte
	ChunkStart int
	ChunkSize  int
	SizeToLoad int
	LastChunk  bool
}

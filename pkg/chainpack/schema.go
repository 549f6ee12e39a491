package chainpack

// Packing schema bytes occupy the upper half of the byte range (>=128);
// values below 128 are tiny integers (packed by PackUInt/PackInt and
// decoded by Unpacker.Next). The order mirrors
// the listing in the format description: Null, TRUE, FALSE, Int, UInt,
// Double, Decimal, DateTime, MetaMap, Map, IMap, List, TERM, Blob, String,
// CString, plus the decode-only obsolete DateTimeEpoch form.
const (
	schemaNull uint8 = 128 + iota
	schemaTrue
	schemaFalse
	schemaInt
	schemaUInt
	schemaDouble
	schemaDecimal
	schemaDateTime
	schemaMetaMap
	schemaMap
	schemaIMap
	schemaList
	schemaTerm
	schemaBlob
	schemaString
	schemaCString
	schemaDateTimeEpochDepr // decode-only, obsolete
)

// shvEpochMs is the Silicon Heaven DateTime epoch: 2018-02-02 00:00:00 UTC.
const shvEpochMs int64 = 1517529600000

package tree

import "sort"

// Access mirrors the SHV broker access-level grant a method requires. Zero
// value (AccessBrowse) is the lowest level and is never emitted by dir,
// which only reports access when it is non-zero.
type Access int

const (
	AccessBrowse Access = iota
	AccessRead
	AccessWrite
	AccessCommand
	AccessConfig
	AccessService
	AccessSuperService
	AccessDevel
	AccessAdmin
)

func (a Access) String() string {
	switch a {
	case AccessBrowse:
		return ""
	case AccessRead:
		return "rd"
	case AccessWrite:
		return "wr"
	case AccessCommand:
		return "cmd"
	case AccessConfig:
		return "cfg"
	case AccessService:
		return "srv"
	case AccessSuperService:
		return "ssrv"
	case AccessDevel:
		return "dev"
	case AccessAdmin:
		return "su"
	default:
		return ""
	}
}

// Flag bits reported under dir's key 2, taken from the method-descriptor
// flag set a browsing client expects (signal vs. plain method, getter/
// setter pairing for typed values).
type Flag uint32

const (
	FlagSignal Flag = 1 << iota
	FlagGetter
	FlagSetter
	FlagLarge
)

// Handler is invoked once dispatch has resolved a node and method. It owns
// the payload unpacker and must consume it fully (even on error, draining
// it via rpc.DrainPayload) and is responsible for writing exactly one reply
// via pkg/rpc.
type Handler func(hc *HandlerContext) error

// MethodDescriptor is one entry of a node's method table.
type MethodDescriptor struct {
	Name         string
	Flags        Flag
	ParamSchema  string
	ResultSchema string
	Access       Access
	Handler      Handler
}

// MethodTable is a method set sorted by name, binary-searched by Lookup.
type MethodTable []MethodDescriptor

// NewMethodTable sorts entries by name and returns them as a MethodTable.
// Panics on a duplicate name, which is a programmer error in a node
// factory, not a runtime condition.
func NewMethodTable(entries ...MethodDescriptor) MethodTable {
	t := make(MethodTable, len(entries))
	copy(t, entries)
	sort.Slice(t, func(i, j int) bool { return t[i].Name < t[j].Name })
	for i := 1; i < len(t); i++ {
		if t[i].Name == t[i-1].Name {
			panic("tree: duplicate method name " + t[i].Name)
		}
	}
	return t
}

// Lookup finds a method by name, or returns nil.
func (t MethodTable) Lookup(name string) *MethodDescriptor {
	i := sort.Search(len(t), func(i int) bool { return t[i].Name >= name })
	if i < len(t) && t[i].Name == name {
		return &t[i]
	}
	return nil
}

package dataflow

// registry is the process-wide, read-mostly map of node type name to
// NodeType, populated by Register calls from each node package's
// init() (§4.5, §5 "Shared resources"), the same registry-adapter
// idiom used for parser/format lookups elsewhere in this codebase's
// lineage.
var registry = map[string]NodeType{}

// Register adds nt to the global node type registry under nt.Name().
// It is meant to be called from package-level init() functions only;
// a later call for the same name replaces the earlier registration.
func Register(nt NodeType) {
	registry[nt.Name()] = nt
}

// Lookup returns the registered NodeType for name, if any.
func Lookup(name string) (NodeType, bool) {
	nt, ok := registry[name]
	return nt, ok
}

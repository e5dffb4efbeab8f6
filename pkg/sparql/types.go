package sparql

// PrefixMap is the prefix table carried through a parse/serialize
// round trip so the output query uses the same prefix declarations as
// the input.
type PrefixMap map[string]string

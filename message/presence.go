package message

// PresenceTable records which fields of a message carry an explicitly set value.
// Keys are always declared field names; a missing key means not present.
type PresenceTable map[string]bool

// Present reports whether the field named name was set.
func (p PresenceTable) Present(name string) bool {
	return p[name]
}

func (p PresenceTable) set(name string) {
	p[name] = true
}

func (p PresenceTable) clear(name string) {
	delete(p, name)
}

func (p PresenceTable) clone() PresenceTable {
	c := make(PresenceTable, len(p))
	for k, v := range p {
		c[k] = v
	}
	return c
}

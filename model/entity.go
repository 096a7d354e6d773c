package model

// EntityKind classifies referenceable entities.
type EntityKind uint8

const (
	KindParty EntityKind = iota + 1
	KindResource
	KindRelease
	KindDeal
)

func (k EntityKind) String() string {
	switch k {
	case KindParty:
		return "Party"
	case KindResource:
		return "Resource"
	case KindRelease:
		return "Release"
	case KindDeal:
		return "Deal"
	default:
		return "Unknown"
	}
}

// Entity is a referenceable member of a message collection.
type Entity interface {
	EntityKind() EntityKind
	Ref() string
}

func (*Party) EntityKind() EntityKind    { return KindParty }
func (*Resource) EntityKind() EntityKind { return KindResource }
func (*Release) EntityKind() EntityKind  { return KindRelease }
func (*Deal) EntityKind() EntityKind     { return KindDeal }

func (p *Party) Ref() string    { return p.Reference }
func (r *Resource) Ref() string { return r.Reference }
func (r *Release) Ref() string  { return r.Reference }
func (d *Deal) Ref() string     { return d.Reference }

// Add appends e to the matching collection of m.
func (m *Message) Add(e Entity) {
	switch v := e.(type) {
	case *Party:
		m.Parties = append(m.Parties, *v)
	case *Resource:
		m.Resources = append(m.Resources, *v)
	case *Release:
		m.Releases = append(m.Releases, *v)
	case *Deal:
		m.Deals = append(m.Deals, *v)
	}
}

// Entities yields pointers into every collection of m in document order.
func (m *Message) Entities() []Entity {
	out := make([]Entity, 0, len(m.Parties)+len(m.Resources)+len(m.Releases)+len(m.Deals))
	for i := range m.Parties {
		out = append(out, &m.Parties[i])
	}
	for i := range m.Resources {
		out = append(out, &m.Resources[i])
	}
	for i := range m.Releases {
		out = append(out, &m.Releases[i])
	}
	for i := range m.Deals {
		out = append(out, &m.Deals[i])
	}
	return out
}

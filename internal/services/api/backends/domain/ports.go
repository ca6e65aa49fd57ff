package domain

// ResolverPort is how sibling modules look configured backends up. The
// Registry implements it; matching and pending consume it
type ResolverPort interface {
	Get(name string) (Backend, bool)
	All() []Backend
}

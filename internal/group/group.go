package group

import "encoding/json"

// Origin records how a group came into existence. It is used for display only.
type Origin string

const (
	OriginManual     Origin = "manual"
	OriginAutoDomain Origin = "auto-domain"
	OriginPattern    Origin = "pattern"
	OriginRestored   Origin = "restored"
)

// RecoveryCapacity is the maximum number of entries kept in the recovery buffer.
const RecoveryCapacity = 10

// Tab is a live browser tab as reported by a tab host. It is input only and
// is never persisted.
type Tab struct {
	URL    string `json:"url"`
	Title  string `json:"title,omitempty"`
	Pinned bool   `json:"pinned,omitempty"`
	Active bool   `json:"active,omitempty"`
}

// TabRef is a snapshot of a tab taken when it was saved into a group.
type TabRef struct {
	// URL is the absolute URL of the tab
	URL string `json:"url"`

	// Title is the tab title at capture time (may be empty)
	Title string `json:"title,omitempty"`

	// Domain is the host extracted from URL at capture time; it is not recomputed
	Domain string `json:"domain"`
}

// DisplayTitle returns the title, falling back to the URL.
func (t TabRef) DisplayTitle() string {
	if t.Title != "" {
		return t.Title
	}
	return t.URL
}

// Group is a named, ordered collection of tab references.
// Timestamps are Unix milliseconds.
type Group struct {
	// ID is the collection key. It is not part of the stored record.
	ID string `json:"-"`

	Name         string   `json:"name"`
	Tabs         []TabRef `json:"tabs"`
	Created      int64    `json:"created"`
	LastAccessed int64    `json:"lastAccessed,omitempty"`

	// Origin is empty for records written by older versions; treat as manual.
	Origin Origin `json:"origin,omitempty"`

	// Pattern is the regular expression used to build a pattern group
	Pattern string `json:"pattern,omitempty"`

	// SourceDomain is the domain an auto-domain group was built from
	SourceDomain string `json:"sourceDomain,omitempty"`

	// Restored is when the group was restored from the recovery buffer
	Restored int64 `json:"restored,omitempty"`

	// Extra holds stored fields this record does not model, and modelled
	// fields whose stored value has the wrong type. They are written back
	// unchanged.
	Extra map[string]json.RawMessage `json:"-"`
}

// LastUsed returns LastAccessed, or Created when the group was never accessed.
func (g *Group) LastUsed() int64 {
	if g.LastAccessed != 0 {
		return g.LastAccessed
	}
	return g.Created
}

// DisplayOrigin returns the origin, defaulting to manual.
func (g *Group) DisplayOrigin() Origin {
	if g.Origin == "" {
		return OriginManual
	}
	return g.Origin
}

// Clone returns a deep copy of the group.
func (g *Group) Clone() *Group {
	if g == nil {
		return nil
	}
	c := *g
	if g.Tabs != nil {
		c.Tabs = make([]TabRef, len(g.Tabs))
		copy(c.Tabs, g.Tabs)
	}
	if g.Extra != nil {
		c.Extra = make(map[string]json.RawMessage, len(g.Extra))
		for k, v := range g.Extra {
			c.Extra[k] = v
		}
	}
	return &c
}

// Collection maps group id to group. Iteration order has no meaning.
type Collection map[string]*Group

// Clone returns a deep copy of the collection.
func (c Collection) Clone() Collection {
	out := make(Collection, len(c))
	for id, g := range c {
		out[id] = g.Clone()
	}
	return out
}

// DeletedEntry is one recovery buffer item.
type DeletedEntry struct {
	// Group is the snapshot of the deleted group; its ID is empty
	Group *Group `json:"group"`

	// DeletedAt is the Unix millisecond deletion time
	DeletedAt int64 `json:"deletedAt"`
}

// PushDeleted appends an entry and trims the oldest entries beyond RecoveryCapacity.
func PushDeleted(buf []DeletedEntry, entry DeletedEntry) []DeletedEntry {
	buf = append(buf, entry)
	if len(buf) > RecoveryCapacity {
		buf = buf[len(buf)-RecoveryCapacity:]
	}
	return buf
}

// CloneDeleted returns a deep copy of a recovery buffer.
func CloneDeleted(buf []DeletedEntry) []DeletedEntry {
	out := make([]DeletedEntry, len(buf))
	for i, e := range buf {
		out[i] = DeletedEntry{Group: e.Group.Clone(), DeletedAt: e.DeletedAt}
	}
	return out
}

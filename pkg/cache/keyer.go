package cache

// Keyer derives cache keys.
type Keyer interface {
	// SnapshotKey names the last good agent list of a source.
	SnapshotKey(source string) string
	// ArtifactKey names a rendered graph.
	ArtifactKey(version string, opts ArtifactKeyOpts) string
}

// ArtifactKeyOpts are the render inputs besides the snapshot.
type ArtifactKeyOpts struct {
	Format   string  `json:"format"`
	Selected string  `json:"selected,omitempty"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Radius   float64 `json:"radius"`
	CenterX  float64 `json:"cx"`
	CenterY  float64 `json:"cy"`
	Scale    float64 `json:"scale,omitempty"`
}

// DefaultKeyer produces keys of the form "kind:..." with hashed options.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

func (DefaultKeyer) SnapshotKey(source string) string {
	return "snapshot:" + source
}

func (DefaultKeyer) ArtifactKey(version string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", version, opts)
}

// ScopedKeyer prefixes every key of an inner Keyer, so several dashboards
// can share one Redis without colliding.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

func (k *ScopedKeyer) SnapshotKey(source string) string {
	return k.prefix + k.inner.SnapshotKey(source)
}

func (k *ScopedKeyer) ArtifactKey(version string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(version, opts)
}

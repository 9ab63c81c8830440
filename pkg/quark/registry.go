package quark

// NodeInfo describes a live atom or compute.
type NodeInfo struct {
	ID          int64    `json:"id"`
	Kind        NodeKind `json:"-"`
	KindName    string   `json:"kind"`
	Label       string   `json:"label,omitempty"`
	Version     uint64   `json:"version"`
	Subscribers int      `json:"subscribers"`
}

// Nodes returns a snapshot of the atoms and computes that are still
// reachable and not destroyed. The registry holds nodes weakly unless the
// runtime was created with WithStrongRegistry, so inspecting a runtime
// never keeps nodes alive. Order is unspecified.
//
// Like every other Runtime method, Nodes must be called from the goroutine
// that owns the runtime.
func (rt *Runtime) Nodes() []NodeInfo {
	var out []NodeInfo
	rt.registry.Range(func(n *node, _ struct{}) bool {
		if n.destroyed {
			return true
		}
		out = append(out, NodeInfo{
			ID:          n.id,
			Kind:        n.kind,
			KindName:    n.kind.String(),
			Label:       n.label,
			Version:     n.version,
			Subscribers: n.subs.Len(),
		})
		return true
	})
	return out
}

// Copyright (c) 2026 The arbor authors
// SPDX-License-Identifier: MIT

// Package fsrepo is arbor's reference Factory: a JSON-per-node
// filesystem store, paired with a Watcher (watcher.go) that turns
// fsnotify events into arbor.Event values. It exists for tests and the
// cmd/arborctl demo, not as a production store — a real SPI would talk
// to a remote content repository server instead.
package fsrepo

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/arbortree/arbor"
)

// Repo implements arbor.Factory against a directory of JSON files: one
// file per node under nodes/, one file per property under props/. Only
// UUID-addressed NodeIDs are supported — the anchor+relative-path
// variant exists for SPIs (like a real JCR-style remote) that mint
// unstable child identity, which a local JSON tree has no reason to
// do.
type Repo struct {
	root string
	mu   sync.Mutex

	rootID arbor.NodeID
}

const rootMarkerFile = "ROOT"

// Open opens (creating if necessary) a fsrepo-backed Factory rooted at
// dir. If dir has no ROOT marker yet, a fresh root node is minted.
func Open(dir string, rootType arbor.Name) (*Repo, error) {
	if err := os.MkdirAll(filepath.Join(dir, "nodes"), 0o755); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(dir, "props"), 0o755); err != nil {
		return nil, err
	}

	r := &Repo{root: dir}

	marker := filepath.Join(dir, rootMarkerFile)
	if b, err := os.ReadFile(marker); err == nil {
		id, perr := parseNodeID(strings.TrimSpace(string(b)))
		if perr != nil {
			return nil, perr
		}
		r.rootID = id
		return r, nil
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	rootID := arbor.NewNodeID()
	root := arbor.NewRootNodeState(arbor.Workspace, rootID, rootType)
	root.MarkExisting()
	if err := r.PutNode(root); err != nil {
		return nil, err
	}
	if err := os.WriteFile(marker, []byte(formatNodeID(rootID)), 0o644); err != nil {
		return nil, err
	}
	r.rootID = rootID
	return r, nil
}

func (r *Repo) RootID() arbor.NodeID { return r.rootID }

type nodeRecord struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	PrimaryType   string        `json:"primaryType"`
	MixinTypes    []string      `json:"mixinTypes,omitempty"`
	PropertyNames []string      `json:"propertyNames,omitempty"`
	Children      []childRecord `json:"children,omitempty"`
}

type childRecord struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

type propertyRecord struct {
	Parent   string `json:"parent"`
	Name     string `json:"name"`
	Multiple bool   `json:"multiple"`
	Values   []any  `json:"values"`
}

func (r *Repo) nodePath(id arbor.NodeID) (string, error) {
	u, ok := id.UUID()
	if !ok {
		return "", fmt.Errorf("fsrepo: node id %v is not UUID-addressed", id)
	}
	return filepath.Join(r.root, "nodes", u.String()+".json"), nil
}

func (r *Repo) propertyPath(id arbor.PropertyID) (string, error) {
	u, ok := id.Parent.UUID()
	if !ok {
		return "", fmt.Errorf("fsrepo: property parent id %v is not UUID-addressed", id.Parent)
	}
	return filepath.Join(r.root, "props", u.String()+"__"+sanitizeName(id.Name)+".json"), nil
}

func sanitizeName(n arbor.Name) string {
	return strings.ReplaceAll(n.Namespace, "/", "_") + "," + strings.ReplaceAll(n.Local, "/", "_")
}

func formatNodeID(id arbor.NodeID) string {
	u, _ := id.UUID()
	return u.String()
}

func parseNodeID(s string) (arbor.NodeID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return arbor.NodeID{}, err
	}
	return arbor.NewUUIDNodeID(u), nil
}

// GetNode implements arbor.Factory.
func (r *Repo) GetNode(id arbor.NodeID) (*arbor.NodeState, error) {
	path, err := r.nodePath(id)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rec nodeRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, err
	}
	return r.decodeNode(rec)
}

func (r *Repo) decodeNode(rec nodeRecord) (*arbor.NodeState, error) {
	nid, err := parseNodeID(rec.ID)
	if err != nil {
		return nil, err
	}

	var n *arbor.NodeState
	if nid.Equal(r.rootID) {
		n = arbor.NewRootNodeState(arbor.Workspace, nid, parseName(rec.PrimaryType))
	} else {
		n = arbor.NewNodeState(arbor.Workspace, nid, parseName(rec.Name), parseName(rec.PrimaryType))
	}
	n.MarkExisting()

	var mixins []arbor.Name
	for _, m := range rec.MixinTypes {
		mixins = append(mixins, parseName(m))
	}
	n.SetMixinTypes(mixins)

	for _, p := range rec.PropertyNames {
		n.AddPropertyName(parseName(p))
	}
	for _, c := range rec.Children {
		cid, err := parseNodeID(c.ID)
		if err != nil {
			return nil, err
		}
		n.Children().Add(parseName(c.Name), cid)
	}
	return n, nil
}

func parseName(s string) arbor.Name {
	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return arbor.NewName(arbor.NoNamespace, s)
	}
	return arbor.NewName(parts[0], parts[1])
}

func formatName(n arbor.Name) string {
	return n.Namespace + "," + n.Local
}

// PutNode implements arbor.Factory.
func (r *Repo) PutNode(n *arbor.NodeState) error {
	path, err := r.nodePath(n.ID())
	if err != nil {
		return err
	}

	rec := nodeRecord{
		ID:          formatNodeID(n.ID()),
		Name:        formatName(n.Name()),
		PrimaryType: formatName(n.PrimaryType()),
	}
	for _, m := range n.MixinTypes() {
		rec.MixinTypes = append(rec.MixinTypes, formatName(m))
	}
	for _, p := range n.PropertyNames() {
		rec.PropertyNames = append(rec.PropertyNames, formatName(p))
	}
	for _, c := range n.Children().All() {
		rec.Children = append(rec.Children, childRecord{Name: formatName(c.Name), ID: formatNodeID(c.ID)})
	}

	b, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return os.WriteFile(path, b, 0o644)
}

// GetProperty implements arbor.Factory.
func (r *Repo) GetProperty(id arbor.PropertyID) (*arbor.PropertyState, error) {
	path, err := r.propertyPath(id)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rec propertyRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, err
	}

	parentID, err := parseNodeID(rec.Parent)
	if err != nil {
		return nil, err
	}
	p := arbor.NewPropertyState(arbor.Workspace, arbor.PropertyID{Parent: parentID, Name: parseName(rec.Name)}, rec.Multiple)
	p.MarkExisting()
	p.SetValues(rec.Values)
	return p, nil
}

// PutProperty implements arbor.Factory.
func (r *Repo) PutProperty(p *arbor.PropertyState) error {
	path, err := r.propertyPath(p.ID())
	if err != nil {
		return err
	}

	rec := propertyRecord{
		Parent:   formatNodeID(p.ID().Parent),
		Name:     formatName(p.ID().Name),
		Multiple: p.Multiple(),
		Values:   p.Values(),
	}
	b, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return os.WriteFile(path, b, 0o644)
}

// DeleteNode implements arbor.Factory.
func (r *Repo) DeleteNode(id arbor.NodeID) error {
	path, err := r.nodePath(id)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// DeleteProperty implements arbor.Factory.
func (r *Repo) DeleteProperty(id arbor.PropertyID) error {
	path, err := r.propertyPath(id)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

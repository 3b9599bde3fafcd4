package models

import (
	"sort"
)

type NodeType int16

const (
	NodeTypeDir  NodeType = 0
	NodeTypeFile NodeType = 1
)

// Node is either a directory (Children set) or a file (Content set).
type Node struct {
	Type     NodeType         `json:"type"`
	Children map[string]*Node `json:"children,omitempty"`
	Content  string           `json:"content,omitempty"`
	ReadOnly bool             `json:"readOnly,omitempty"`
	Hidden   bool             `json:"hidden,omitempty"`
}

func NewDir() *Node {
	return &Node{Type: NodeTypeDir, Children: make(map[string]*Node)}
}

func NewFile(content string) *Node {
	return &Node{Type: NodeTypeFile, Content: content}
}

// NewSystemFile returns a read-only, hidden file.
func NewSystemFile(content string) *Node {
	return &Node{Type: NodeTypeFile, Content: content, ReadOnly: true, Hidden: true}
}

func (n *Node) IsDir() bool {
	return n != nil && n.Type == NodeTypeDir
}

// Child returns the named child of a directory, or nil.
func (n *Node) Child(name string) *Node {
	if !n.IsDir() {
		return nil
	}
	return n.Children[name]
}

// SetChild places child under name, allocating the map after a JSON round-trip
// of an empty directory.
func (n *Node) SetChild(name string, child *Node) {
	if n.Children == nil {
		n.Children = make(map[string]*Node)
	}
	n.Children[name] = child
}

// Names returns the directory's child names in alphabetical order.
func (n *Node) Names() []string {
	names := make([]string, 0, len(n.Children))
	for name := range n.Children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// UserFilesystem is one user's snapshot: the tree plus the shell's cwd.
type UserFilesystem struct {
	Root       *Node  `json:"root"`
	CurrentDir string `json:"currentDir"`
}

type NetworkConfig struct {
	SpeedMbps         float64 `json:"speed"`
	LatencyMs         float64 `json:"latency"`
	JitterMs          float64 `json:"jitter"`
	PacketLossPercent float64 `json:"packetLoss"`
	Enabled           bool    `json:"enabled"`
}

func DefaultNetworkConfig() NetworkConfig {
	return NetworkConfig{
		SpeedMbps:         500,
		LatencyMs:         20,
		JitterMs:          0,
		PacketLossPercent: 0,
		Enabled:           true,
	}
}

// AppendHistory appends entries and evicts the oldest ones beyond limit.
func AppendHistory(history []string, limit int, entries ...string) []string {
	history = append(history, entries...)
	if limit > 0 && len(history) > limit {
		history = append([]string(nil), history[len(history)-limit:]...)
	}
	return history
}

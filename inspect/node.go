package inspect

// Node represents a UI component in the inspection tree.
type Node struct {
	// Type is the component type, e.g. "TabList" or "Tab".
	Type    string                 `json:"type"`
	ID      string                 `json:"id,omitempty"`
	Bounds  Bounds                 `json:"bounds"`
	Visible bool                   `json:"visible"`
	State   map[string]interface{} `json:"state,omitempty"`
	Styles  *StyleInfo             `json:"styles,omitempty"`
	// Content is the text content if applicable.
	Content   string          `json:"content,omitempty"`
	Truncated *TruncationInfo `json:"truncated,omitempty"`
	Children  []*Node         `json:"children,omitempty"`
}

// Bounds represents component position and dimensions.
type Bounds struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// StyleInfo contains styling information for a component.
type StyleInfo struct {
	Foreground  string `json:"foreground,omitempty"`
	Background  string `json:"background,omitempty"`
	Bold        bool   `json:"bold,omitempty"`
	Italic      bool   `json:"italic,omitempty"`
	Underline   bool   `json:"underline,omitempty"`
	Border      bool   `json:"border,omitempty"`
	BorderColor string `json:"border_color,omitempty"`
	// Padding is [top, right, bottom, left].
	Padding []int `json:"padding,omitempty"`
}

// TruncationInfo describes text that was cut to fit.
type TruncationInfo struct {
	OriginalLength int  `json:"original_length"`
	DisplayLength  int  `json:"display_length"`
	Ellipsis       bool `json:"ellipsis"`
}

// NewNode creates a new visible Node with the given type.
func NewNode(nodeType string) *Node {
	return &Node{
		Type:    nodeType,
		Visible: true,
	}
}

// WithID sets the node ID and returns the node for chaining.
func (n *Node) WithID(id string) *Node {
	n.ID = id
	return n
}

// WithBounds sets the node bounds and returns the node for chaining.
func (n *Node) WithBounds(x, y, width, height int) *Node {
	n.Bounds = Bounds{X: x, Y: y, Width: width, Height: height}
	return n
}

// WithState adds a state key-value pair and returns the node for chaining.
func (n *Node) WithState(key string, value interface{}) *Node {
	if n.State == nil {
		n.State = make(map[string]interface{})
	}
	n.State[key] = value
	return n
}

// WithStyles sets the node styles and returns the node for chaining.
func (n *Node) WithStyles(styles *StyleInfo) *Node {
	n.Styles = styles
	return n
}

// WithVisible marks the node as rendered or not.
func (n *Node) WithVisible(visible bool) *Node {
	n.Visible = visible
	return n
}

// AddChild adds a child node and returns the parent for chaining.
func (n *Node) AddChild(child *Node) *Node {
	if child != nil {
		n.Children = append(n.Children, child)
	}
	return n
}

// WithContent sets the node content and returns the node for chaining.
func (n *Node) WithContent(content string) *Node {
	n.Content = content
	return n
}

// WithTruncation records that content of length original was shown in
// displayed cells. Nothing is recorded when it fit.
func (n *Node) WithTruncation(original, displayed int, hasEllipsis bool) *Node {
	if original <= displayed {
		return n
	}
	n.Truncated = &TruncationInfo{
		OriginalLength: original,
		DisplayLength:  displayed,
		Ellipsis:       hasEllipsis,
	}
	return n
}

// Find returns the first node of nodeType in the tree, depth first.
func (n *Node) Find(nodeType string) *Node {
	if n == nil {
		return nil
	}
	if n.Type == nodeType {
		return n
	}
	for _, child := range n.Children {
		if found := child.Find(nodeType); found != nil {
			return found
		}
	}
	return nil
}

package model

// BlockType classifies a node produced by the document analysis provider.
type BlockType string

const (
	BlockTable            BlockType = "TABLE"
	BlockCell             BlockType = "CELL"
	BlockWord             BlockType = "WORD"
	BlockSelectionElement BlockType = "SELECTION_ELEMENT"
)

// RelationshipChild links a block to the blocks it is composed of.
const RelationshipChild = "CHILD"

// SelectionSelected marks a checked selection element.
const SelectionSelected = "SELECTED"

// Relationship is an ordered list of block ids related to a parent block.
type Relationship struct {
	Type string   `json:"Type"`
	IDs  []string `json:"Ids"`
}

// Block is one OCR node. Row/column fields are 1-based and only meaningful
// for CELL blocks; 0 means the provider omitted them.
type Block struct {
	ID              string         `json:"Id"`
	Type            BlockType      `json:"BlockType"`
	Page            int            `json:"Page,omitempty"`
	Text            string         `json:"Text,omitempty"`
	RowIndex        int            `json:"RowIndex,omitempty"`
	ColumnIndex     int            `json:"ColumnIndex,omitempty"`
	RowSpan         int            `json:"RowSpan,omitempty"`
	ColumnSpan      int            `json:"ColumnSpan,omitempty"`
	SelectionStatus string         `json:"SelectionStatus,omitempty"`
	Relationships   []Relationship `json:"Relationships,omitempty"`
}

// Children returns the ids of every CHILD relationship, in order.
func (b Block) Children() []string {
	var ids []string
	for _, rel := range b.Relationships {
		if rel.Type != RelationshipChild {
			continue
		}
		ids = append(ids, rel.IDs...)
	}
	return ids
}

// Grid is the reconstructed text matrix of one table.
type Grid [][]string

// Table pairs a TABLE block's identity with its grid.
type Table struct {
	ID    string
	Page  int
	Index int // 1-based position among emitted tables
	Grid  Grid
}

package models

import "fmt"

// NeedleOffset selects one of the variants embedded in a blob.
// Only 1, 2 and 3 are valid.
type NeedleOffset int

// Needle offsets for the three embedded variants
const (
	NeedleThumbnail NeedleOffset = 1
	NeedleMedium    NeedleOffset = 2
	NeedleFull      NeedleOffset = 3
)

// Valid reports whether the offset points at an existing variant field
func (o NeedleOffset) Valid() bool {
	return o >= NeedleThumbnail && o <= NeedleFull
}

// IndexRecord is one row of the index table.
// Maps to: photo_index table
type IndexRecord struct {
	PhotoID string `db:"photo_id" json:"photo_id"`
	Cookie  string `db:"cookie" json:"cookie"`

	// Blob holding the needle
	BlobID string `db:"blob_id" json:"blob_id"`

	// Which embedded variant of the blob this identity serves
	NeedleOffset NeedleOffset `db:"needle_offset" json:"needle_offset"`
}

// BlobRecord is an append-only physical blob aggregating up to three
// variants of a logical photo (thumbnail, medium, full).
// Maps to: photo_blob table
type BlobRecord struct {
	BlobID   string `db:"blob_id" json:"blob_id"`
	Variant1 []byte `db:"variant_1" json:"-"`
	Variant2 []byte `db:"variant_2" json:"-"`
	Variant3 []byte `db:"variant_3" json:"-"`
}

// Needle returns the variant selected by offset
func (b *BlobRecord) Needle(offset NeedleOffset) ([]byte, error) {
	switch offset {
	case NeedleThumbnail:
		return b.Variant1, nil
	case NeedleMedium:
		return b.Variant2, nil
	case NeedleFull:
		return b.Variant3, nil
	default:
		return nil, fmt.Errorf("needle offset %d out of range for blob %s", offset, b.BlobID)
	}
}

package model

// RecordKind names the resolver that produced a Record.
type RecordKind string

const (
	KindPositions     RecordKind = "positions"
	KindPosition      RecordKind = "position"
	KindRentals       RecordKind = "rentals"
	KindActiveRentals RecordKind = "active_rentals"
	KindPreview       RecordKind = "preview"
)

// Record is one resolved result as written to a sink.
type Record struct {
	ChainID    uint64      `json:"chain_id"`
	Kind       RecordKind  `json:"kind"`
	Account    string      `json:"account,omitempty"`
	Loading    bool        `json:"loading"`
	Ready      bool        `json:"ready"`
	ObservedAt string      `json:"observed_at"`
	Positions  []Position  `json:"positions,omitempty"`
	Rentals    []Rental    `json:"rentals,omitempty"`
	Preview    *Preview    `json:"preview,omitempty"`
	Tokens     []TokenMeta `json:"tokens,omitempty"`
	// Badge is the rental badge for a preview of a rented position.
	Badge string `json:"badge,omitempty"`
}

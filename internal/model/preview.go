package model

// PreviewKind selects which review screen a position is shown with.
type PreviewKind string

const (
	PreviewPosition PreviewKind = "position"
	PreviewRental   PreviewKind = "rental"
)

// TicksAtLimit flags range bounds sitting at the pool's usable tick limits.
type TicksAtLimit struct {
	Lower bool `json:"lower"`
	Upper bool `json:"upper"`
}

// Preview is the data behind the review screen for a position or a rental offer.
type Preview struct {
	Kind               PreviewKind  `json:"kind"`
	Position           Position     `json:"position"`
	Pool               string       `json:"pool"`
	CurrentTick        int32        `json:"current_tick"`
	InRange            bool         `json:"in_range"`
	TicksAtLimit       TicksAtLimit `json:"ticks_at_limit"`
	RentalDurationSecs uint64       `json:"rental_duration_secs,omitempty"`
	RentalPriceInEth   string       `json:"rental_price_in_eth,omitempty"`
	RentalExpiresAt    uint64       `json:"rental_expires_at,omitempty"`
}

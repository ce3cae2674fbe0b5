package model

// TokenMeta is the ERC20 metadata of one side of a position. Symbol and Name are empty
// for tokens that do not expose them as strings.
type TokenMeta struct {
	Address  string `json:"address"`
	Decimals uint8  `json:"decimals"`
	Symbol   string `json:"symbol,omitempty"`
	Name     string `json:"name,omitempty"`
}

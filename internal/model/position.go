package model

// Position is one liquidity position held by the position manager.
// Big integers are decimal strings so JSON consumers never lose precision.
type Position struct {
	TokenID                  string `json:"token_id"`
	Fee                      uint32 `json:"fee"`
	FeeGrowthInside0LastX128 string `json:"fee_growth_inside0_last_x128"`
	FeeGrowthInside1LastX128 string `json:"fee_growth_inside1_last_x128"`
	Liquidity                string `json:"liquidity"`
	Nonce                    string `json:"nonce"`
	Operator                 string `json:"operator"`
	TickLower                int32  `json:"tick_lower"`
	TickUpper                int32  `json:"tick_upper"`
	Token0                   string `json:"token0"`
	Token1                   string `json:"token1"`
	TokensOwed0              string `json:"tokens_owed0"`
	TokensOwed1              string `json:"tokens_owed1"`
}

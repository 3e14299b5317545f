package model

// Snapshot is a serializable copy of an engine's state.
type Snapshot struct {
	Token0      string           `json:"token0"`
	Token1      string           `json:"token1"`
	LPToken     string           `json:"lp_token"`
	FeeBps      uint32           `json:"fee_bps"`
	Reserve0    string           `json:"reserve0"`
	Reserve1    string           `json:"reserve1"`
	TotalSupply string           `json:"total_supply"`
	Seq         uint64           `json:"seq"`
	Custody     []CustodyBalance `json:"custody"`
	Shares      []ShareBalance   `json:"shares"`
}

// CustodyBalance is one (account, asset) entry of the custody ledger.
type CustodyBalance struct {
	Account string `json:"account"`
	Asset   string `json:"asset"`
	Amount  string `json:"amount"`
}

// ShareBalance is one LP share holding.
type ShareBalance struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

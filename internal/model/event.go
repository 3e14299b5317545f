package model

// EventKind names a committed engine mutation.
type EventKind string

const (
	EventDeposit         EventKind = "deposit"
	EventWithdraw        EventKind = "withdraw"
	EventSwap            EventKind = "swap"
	EventAddLiquidity    EventKind = "add_liquidity"
	EventRemoveLiquidity EventKind = "remove_liquidity"
)

// Funding sources for the input side of a mutation.
const (
	FundingCustody  = "custody"
	FundingExternal = "external"
	FundingMixed    = "mixed"
)

// Event is the journal record of one committed mutation. Amounts are base-unit
// decimal strings; the reserve and supply fields hold the state after commit.
type Event struct {
	Seq         uint64    `json:"seq"`
	Kind        EventKind `json:"kind"`
	Pool        string    `json:"pool"`
	Account     string    `json:"account"`
	Recipient   string    `json:"recipient,omitempty"`
	AssetIn     string    `json:"asset_in,omitempty"`
	AmountIn    string    `json:"amount_in,omitempty"`
	AssetOut    string    `json:"asset_out,omitempty"`
	AmountOut   string    `json:"amount_out,omitempty"`
	Amount0     string    `json:"amount0,omitempty"`
	Amount1     string    `json:"amount1,omitempty"`
	Shares      string    `json:"shares,omitempty"`
	Fee         string    `json:"fee,omitempty"`
	Funding     string    `json:"funding,omitempty"`
	Reserve0    string    `json:"reserve0"`
	Reserve1    string    `json:"reserve1"`
	TotalSupply string    `json:"total_supply"`
	Timestamp   uint64    `json:"timestamp"`
}

package model

// TokenLedgerState is a serializable copy of a simulated token contract.
type TokenLedgerState struct {
	Meta        TokenMeta       `json:"meta"`
	TotalSupply string          `json:"total_supply"`
	Balances    []AccountAmount `json:"balances"`
	Allowances  []Allowance     `json:"allowances"`
}

// AccountAmount pairs an account with a base-unit amount.
type AccountAmount struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

// Allowance is an owner->spender approval.
type Allowance struct {
	Owner   string `json:"owner"`
	Spender string `json:"spender"`
	Amount  string `json:"amount"`
}

// WorldState is everything the CLI persists between invocations.
type WorldState struct {
	Engine    Snapshot           `json:"engine"`
	Tokens    []TokenLedgerState `json:"tokens"`
	UpdatedAt string             `json:"updated_at"`
}

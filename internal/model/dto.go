package model

// IndexStats summarizes row counts of the index, reported by the stats
// endpoint alongside the engine's own counters.
type IndexStats struct {
	Blocks       int64 `json:"blocks"`
	Transactions int64 `json:"transactions"`
	Outputs      int64 `json:"outputs"`
	Addresses    int64 `json:"addresses"`
	Unconfirmed  int64 `json:"unconfirmed"`
}

// BalanceDrift reports an address whose stored balance disagrees with the
// sum of its unspent outputs.
type BalanceDrift struct {
	Address    string `json:"address"`
	Balance    int64  `json:"balance"`
	UnspentSum int64  `json:"unspent_sum"`
}

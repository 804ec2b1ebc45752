package market

// Listing is a market as returned by discovery, with its outcome tokens.
type Listing struct {
	ID       string   `json:"id" yaml:"id"`
	Question string   `json:"question" yaml:"question"`
	TokenIDs []string `json:"token_ids" yaml:"token_ids"`
}

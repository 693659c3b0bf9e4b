package faster100x

import (
	"holder-risk-engine/internal/domain/entity"
)

// analyzeEndpoint is the tRPC procedure returning holder and fund graph data
const analyzeEndpoint = "/api/trpc/embedded.getAnalyzeResult"

// statusSuccess is the status reported by the provider for a usable result
const statusSuccess = "success"

// batchResponse is one element of the tRPC batch response array
type batchResponse struct {
	Result struct {
		Data struct {
			JSON analyzeResult `json:"json"`
		} `json:"data"`
	} `json:"result"`
}

// analyzeResult is the provider payload for a single token
type analyzeResult struct {
	Status       string       `json:"status"`
	Message      *string      `json:"message"`
	TokenAddress *string      `json:"token_address"`
	UpdatedAt    *string      `json:"updated_at"`
	Data         *analyzeData `json:"data"`
}

type analyzeData struct {
	Response analyzeResponse `json:"response"`
}

type analyzeResponse struct {
	FundGraphData entity.FundGraph   `json:"fund_graph_data"`
	Data          []entity.RawHolder `json:"data"`
	TopNodes      []string           `json:"top_nodes"`
}

// batchInput builds the tRPC batch input for a token address
func batchInput(tokenAddress string) map[string]any {
	return map[string]any{
		"0": map[string]any{
			"json": map[string]any{
				"tokenAddress": tokenAddress,
			},
		},
	}
}

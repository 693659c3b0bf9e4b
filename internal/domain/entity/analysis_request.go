package entity

// AnalysisRequest represents a holder-risk analysis request received from NATS
type AnalysisRequest struct {
	RequestID    string `json:"request_id"`
	TokenAddress string `json:"token_address"`
}

// AnalysisJob is an analysis request together with the subject its report
// should be answered on. ReplySubject is empty when nobody awaits a reply.
type AnalysisJob struct {
	Request      AnalysisRequest
	ReplySubject string
}

package event

import "github.com/b08x/sift-toolbox-report-builder-sub001/pkg/types"

// AnalysisCreatedData is the data for analysis.created events.
type AnalysisCreatedData struct {
	Info *types.AnalysisSession `json:"info"`
}

// AnalysisUpdatedData is the data for analysis.updated events.
type AnalysisUpdatedData struct {
	Info *types.AnalysisSession `json:"info"`
}

// AnalysisDeletedData is the data for analysis.deleted events.
type AnalysisDeletedData struct {
	SessionID string `json:"sessionID"`
}

// AnalysisFrameData mirrors one relay frame onto the bus, for auxiliary
// observers. Delivery here is best-effort; the response stream is the
// authoritative channel.
type AnalysisFrameData struct {
	SessionID string            `json:"sessionID"`
	Frame     types.StreamFrame `json:"frame"`
}

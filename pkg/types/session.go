// Package types provides the core data types for the SIFT report builder.
package types

// SessionStatus is the lifecycle state of an analysis session.
type SessionStatus string

const (
	// StatusIdle is the client-side state before any session exists.
	StatusIdle       SessionStatus = "idle"
	StatusInitiating SessionStatus = "initiating"
	StatusStreaming  SessionStatus = "streaming"
	StatusComplete   SessionStatus = "complete"
	StatusStopped    SessionStatus = "stopped"
	StatusErrored    SessionStatus = "errored"
)

// Terminal reports whether the status ends the session lifecycle.
func (s SessionStatus) Terminal() bool {
	switch s {
	case StatusComplete, StatusStopped, StatusErrored:
		return true
	}
	return false
}

// ReportType selects the analysis prompt family.
type ReportType string

const (
	ReportFullCheck     ReportType = "sift_full_check"
	ReportContextReport ReportType = "context_report"
	ReportCommunityNote ReportType = "community_note"
)

// KnownReportType reports whether t is one of the supported report tags.
func KnownReportType(t ReportType) bool {
	switch t {
	case ReportFullCheck, ReportContextReport, ReportCommunityNote:
		return true
	}
	return false
}

// AnalysisQuery is the user submission that seeds an analysis session.
// At least one of Text or ImageRef must be set.
type AnalysisQuery struct {
	Text       string         `json:"text,omitempty"`
	ImageRef   string         `json:"imageRef,omitempty"`
	ReportType ReportType     `json:"reportType"`
	Model      string         `json:"model"` // "provider/model"
	Params     map[string]any `json:"params,omitempty"`
}

// Empty reports whether the query carries no analyzable content.
func (q AnalysisQuery) Empty() bool {
	return q.Text == "" && q.ImageRef == ""
}

// AnalysisSession identifies one analysis lifecycle.
type AnalysisSession struct {
	ID     string        `json:"id"`
	Query  AnalysisQuery `json:"query"`
	Status SessionStatus `json:"status"`
	Time   SessionTime   `json:"time"`
}

// SessionTime contains timestamps for a session, in unix millis.
type SessionTime struct {
	Created int64 `json:"created"`
	Updated int64 `json:"updated"`
}

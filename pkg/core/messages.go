package core

// Outbound message types sent to the host.
const (
	MessageSelectHistory  = "selectHistory"
	MessageRestoreHistory = "restoreHistory"
	MessageOpenExternal   = "openExternal"
	MessageClearHistory   = "clearHistory"
	MessageAddNode        = "addNode"
)

// OutboundMessage notifies the host of one user action.
type OutboundMessage struct {
	Type     string `json:"type"`
	RunID    string `json:"runId,omitempty"`
	URL      string `json:"url,omitempty"`
	NodeType string `json:"nodeType,omitempty"`
	Provider string `json:"provider,omitempty"`
	// Run is the full entry for history selections.
	Run *HistoryEntry `json:"run,omitempty"`
}

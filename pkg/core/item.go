package core

// ItemKind identifies which panel variant an Item belongs to.
type ItemKind string

// Item kinds.
const (
	ItemKindContext     ItemKind = "context"
	ItemKindProvider    ItemKind = "provider"
	ItemKindHistory     ItemKind = "history"
	ItemKindEnvironment ItemKind = "environment"
)

// Item is the view model of one list entry inside a panel.
type Item struct {
	ID          string
	Kind        ItemKind
	Label       string
	Description string
	Icon        string
	Status      RunStatus
	StatusLabel string
	Time        string
	Interactive bool
	// Restorable is set on history items carrying a pipeline snapshot.
	Restorable bool
	// PullRequests and PullRequestURL are set on history items linked to PRs.
	PullRequests   int
	PullRequestURL string
	// Value is the environment variable value.
	Value string
}

package core

// CatalogItem is an entry of the Providers panel.
type CatalogItem struct {
	ID          string `json:"id" koanf:"id"`
	Label       string `json:"label" koanf:"label"`
	Icon        string `json:"icon,omitempty" koanf:"icon"`
	Description string `json:"description,omitempty" koanf:"description"`
}

// DefaultContextItems returns the context entries shown above the providers.
func DefaultContextItems() []CatalogItem {
	return []CatalogItem{
		{ID: "workspace", Label: "Workspace", Icon: "codicon-root-folder", Description: "Workspace folder and settings"},
		{ID: "activeFile", Label: "Active File", Icon: "codicon-file", Description: "Contents of the focused editor"},
		{ID: "selection", Label: "Selection", Icon: "codicon-selection", Description: "Current editor selection"},
	}
}

// DefaultProviders returns the built-in provider entries.
func DefaultProviders() []CatalogItem {
	return []CatalogItem{
		{ID: "terminal", Label: "Terminal", Icon: "codicon-terminal", Description: "Run shell commands"},
		{ID: "system", Label: "System", Icon: "codicon-settings-gear", Description: "Workflow controls"},
		{ID: "git", Label: "Git", Icon: "codicon-git-commit", Description: "Version control operations"},
		{ID: "docker", Label: "Docker", Icon: "codicon-container", Description: "Container operations"},
	}
}

// Package sidebar implements the tab/panel state machine of the sidebar.
//
// A Store holds the host data, a TabController owns the single selected tab,
// RenderPanel turns a tab and a snapshot into list items, and Bind projects the
// resulting View onto accessibility attributes. Container composes them for one
// viewer and forwards user actions to a MessageSink.
package sidebar

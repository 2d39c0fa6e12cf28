// Package commands describes slash commands exposed in the bot menu.
package commands

// Command is the metadata of a slash command. Routing is done by the
// registry owner; AdminOnly and Hidden only affect menu visibility.
type Command struct {
	Description string
	AdminOnly   bool
	Hidden      bool
	Aliases     []string
}

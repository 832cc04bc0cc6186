// Package present defines a presenter for formatting messages and message types.
package present

// Presenter formats messages and message types for displaying them.
type Presenter interface {
	// Format receives v and returns the formatted output as string.
	// v is a *message.Message, a *schema.MessageType or a struct that has rows.
	Format(v interface{}) (string, error)
}

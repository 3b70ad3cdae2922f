// README: Plain addressing data for notifications; no entity internals.
package types

type Contact struct {
	UserID      ID
	Email       string
	FirstName   string
	LastName    string
	DeviceToken string
}

// README: Embedded goose migrations for the PickMeUp schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS

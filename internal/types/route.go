// README: Route summary returned by the routing provider.
package types

import "time"

type Route struct {
	EncodedPolyline string
	DistanceMeters  int
	Duration        time.Duration
}

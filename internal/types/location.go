// README: Geocoded location value object shared by travels and pick-up requests.
package types

import "strings"

type Point struct {
	Lat float64
	Lng float64
}

// Location is an address with coordinates and an optional administrative
// hierarchy. Hierarchy fields are free text; blank means unset.
type Location struct {
	ID              ID
	ReadableAddress string
	Position        Point
	Street          string
	Number          string
	City            string
	PostalCode      string
	Province        string
	Region          string
	Country         string
	Continent       string
}

// LocationLookup is the lightweight projection used in listings.
type LocationLookup struct {
	ID              ID
	ReadableAddress string
	Position        Point
}

func (l Location) Lookup() LocationLookup {
	return LocationLookup{ID: l.ID, ReadableAddress: l.ReadableAddress, Position: l.Position}
}

// HasHierarchy reports whether any of the matchable hierarchy fields is set.
func (l Location) HasHierarchy() bool {
	return !Blank(l.City) || !Blank(l.Province) || !Blank(l.Region)
}

// Normalized returns a copy with surrounding whitespace removed from every
// text field.
func (l Location) Normalized() Location {
	l.ReadableAddress = strings.TrimSpace(l.ReadableAddress)
	l.Street = strings.TrimSpace(l.Street)
	l.Number = strings.TrimSpace(l.Number)
	l.City = strings.TrimSpace(l.City)
	l.PostalCode = strings.TrimSpace(l.PostalCode)
	l.Province = strings.TrimSpace(l.Province)
	l.Region = strings.TrimSpace(l.Region)
	l.Country = strings.TrimSpace(l.Country)
	l.Continent = strings.TrimSpace(l.Continent)
	return l
}

// Blank treats empty and whitespace-only strings as unset.
func Blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// Package model defines domain entities used by services and repositories.
package model

import (
	"fmt"
	"strings"
)

// User represents an account row. The password is never stored in plaintext.
type User struct {
	Username string // unique, stored lowercase
	PwdHash  []byte // PBKDF2(password, Salt)
	Salt     []byte // per-user salt
	Balance  int64  // non-negative
}

// Flight is a single flight row. Read-only to this engine.
type Flight struct {
	ID         int64
	DayOfMonth int
	CarrierID  string
	FlightNum  string
	OriginCity string
	DestCity   string
	Duration   int // minutes
	Capacity   int
	Price      int64
}

// String renders the flight in the listing format shared by search and
// reservation output.
func (f Flight) String() string {
	return fmt.Sprintf("ID: %d Day: %d Carrier: %s Number: %s Origin: %s Dest: %s Duration: %d Capacity: %d Price: %d",
		f.ID, f.DayOfMonth, f.CarrierID, f.FlightNum, f.OriginCity, f.DestCity, f.Duration, f.Capacity, f.Price)
}

// Itinerary is one or two connecting flights on the same day. It is derived by
// search and never persisted; Index is its position in the session's most
// recent result set and is only meaningful until the next search.
type Itinerary struct {
	Index  int
	First  Flight
	Second *Flight // nil for a direct itinerary
}

// Direct reports whether the itinerary has a single leg.
func (it Itinerary) Direct() bool { return it.Second == nil }

// Legs returns the flights in order.
func (it Itinerary) Legs() []Flight {
	if it.Second == nil {
		return []Flight{it.First}
	}
	return []Flight{it.First, *it.Second}
}

// TotalTime is the sum of leg durations in minutes.
func (it Itinerary) TotalTime() int {
	if it.Second != nil {
		return it.First.Duration + it.Second.Duration
	}
	return it.First.Duration
}

// TotalCost is the sum of leg prices.
func (it Itinerary) TotalCost() int64 {
	if it.Second != nil {
		return it.First.Price + it.Second.Price
	}
	return it.First.Price
}

// Describe renders the itinerary with its assigned index, leg count, total
// duration and one line per leg.
func (it Itinerary) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Itinerary %d: %d flight(s), %d minutes\n", it.Index, len(it.Legs()), it.TotalTime())
	for _, leg := range it.Legs() {
		b.WriteString(leg.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// CompareItineraries is the total order used to rank search results: ascending
// total time, ties broken by flight ids. On equal total time a direct itinerary
// compares by its only leg and an indirect one by its second leg; when those
// ids are equal the direct itinerary sorts first, and two indirect itineraries
// fall back to the first leg's id.
func CompareItineraries(a, b Itinerary) int {
	if c := cmp(a.TotalTime(), b.TotalTime()); c != 0 {
		return c
	}
	switch {
	case a.Direct() && b.Direct():
		return cmp64(a.First.ID, b.First.ID)
	case a.Direct():
		if c := cmp64(a.First.ID, b.Second.ID); c != 0 {
			return c
		}
		return -1
	case b.Direct():
		if c := cmp64(a.Second.ID, b.First.ID); c != 0 {
			return c
		}
		return 1
	default:
		if c := cmp64(a.Second.ID, b.Second.ID); c != 0 {
			return c
		}
		return cmp64(a.First.ID, b.First.ID)
	}
}

func cmp(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmp64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Reservation is an authoritative reservation row. IDs are storage-assigned,
// monotonic and never reused; cancelled rows are kept forever.
type Reservation struct {
	ID         int64
	Username   string
	Itinerary  int // index the itinerary had in the search that booked it
	Direct     bool
	Flight1    int64
	Flight2    int64 // 0 when Direct
	Cost       int64
	Paid       bool
	Cancelled  bool
	DayOfMonth int
}

// FlightIDs returns the ids of the legs the reservation holds.
func (r Reservation) FlightIDs() []int64 {
	if r.Direct {
		return []int64{r.Flight1}
	}
	return []int64{r.Flight1, r.Flight2}
}

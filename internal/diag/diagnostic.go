package diag

import "fmt"

// Location is a position in engine coordinates: Row is 1-based, Column is a
// 0-based count of code points from the start of the line.
type Location struct {
	Row    int `json:"row" msgpack:"row"`
	Column int `json:"column" msgpack:"column"`
}

func (l Location) String() string {
	return fmt.Sprintf("%d:%d", l.Row, l.Column)
}

// Before reports whether l sorts strictly before other.
func (l Location) Before(other Location) bool {
	if l.Row != other.Row {
		return l.Row < other.Row
	}
	return l.Column < other.Column
}

// Fix is a single verbatim replacement of [Location, EndLocation) that the
// engine asserts is safe to apply.
type Fix struct {
	Content     string   `json:"content" msgpack:"content"`
	Location    Location `json:"location" msgpack:"location"`
	EndLocation Location `json:"end_location" msgpack:"end_location"`
	Message     string   `json:"message,omitempty" msgpack:"message,omitempty"`
}

type Diagnostic struct {
	Code        string   `json:"code" msgpack:"code"`
	Message     string   `json:"message" msgpack:"message"`
	Location    Location `json:"location" msgpack:"location"`
	EndLocation Location `json:"end_location" msgpack:"end_location"`
	Fix         *Fix     `json:"fix,omitempty" msgpack:"fix,omitempty"`
}

// HasFix reports whether the diagnostic carries a fix.
func (d Diagnostic) HasFix() bool {
	return d.Fix != nil
}

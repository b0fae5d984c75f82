package subtitle

import "time"

// Entry represents a single timed caption unit
type Entry struct {
	Index     int           // subtitle index
	StartTime time.Duration // start time
	EndTime   time.Duration // end time
	Text      string        // caption text, may span multiple lines
}

// Document represents a parsed subtitle file
type Document struct {
	Entries []Entry
	Format  string // e.g. SRT
}

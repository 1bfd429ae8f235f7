package models

import "time"

const (
	// BookingListLimit caps the newest-first booking list.
	BookingListLimit = 100
	// CustomerListLimit caps customer list and search results.
	CustomerListLimit = 200

	// MaxBodyBytes limits JSON request bodies.
	MaxBodyBytes = 1 << 20
)

const (
	DefaultSearchDebounce = 250 * time.Millisecond
	DefaultClientTimeout  = 10 * time.Second

	WorkerQueueSize = 100
)

const (
	ParseModeMarkdown = "Markdown"
	ParseModeHTML     = "HTML"
)
